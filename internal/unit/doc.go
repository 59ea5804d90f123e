// Package unit defines the per-file load capability the fixpoint loader drives.
//
// A Loader attempts one file unit and reports success, a retryable failure
// (the unit references something that is not loaded yet) or a fatal failure.
// The classification travels on the error value as a Kind rather than being
// inferred from the error's concrete type.
//
// Two strategies implement Loader: Plain for the first load and ChangeAware
// for reloads, which consults a Tracker before touching the Sink.
package unit
