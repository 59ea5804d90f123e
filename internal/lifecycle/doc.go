// Package lifecycle owns the load state of a program made of file units.
//
// A Controller moves between Unloaded, Loading, Loaded and Reloading. Load
// runs the before hooks, loads every unit matched by the dependency globs
// with the fixpoint loader in plain mode, runs the after hooks and starts
// change tracking. Reload does the same in change-aware mode for the units
// that changed on disk. Clear returns to Unloaded from any state.
//
// Whole cycles are serialized by a mutex. Loaded and State never block.
package lifecycle
