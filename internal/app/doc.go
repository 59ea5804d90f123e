// Package app wires the loader into a runnable program. It builds the logger,
// the namespace, the HCL unit sink, the change tracker and the lifecycle
// controller from a Config, and runs load, print and watch, decoupled from
// any specific entrypoint like a CLI.
package app
