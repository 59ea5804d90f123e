// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package unit

import "context"

// Loader attempts to load a single unit. A nil error means the unit is loaded.
// Implementations must be safe to call again for the same path after a
// retryable failure.
type Loader interface {
	LoadUnit(ctx context.Context, path string) error
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, path string) error

// LoadUnit calls f(ctx, path).
func (f LoaderFunc) LoadUnit(ctx context.Context, path string) error {
	return f(ctx, path)
}

// Sink executes units into the running program. It is supplied by the host.
//
// Load returns a *LoadError classified by Kind; an unclassified error is
// treated as fatal. A failed Load must leave nothing behind so it can be
// retried. Unload removes everything the unit defined.
type Sink interface {
	Load(ctx context.Context, path string) error
	Unload(ctx context.Context, path string) error
}

// SearchPathSetter is implemented by sinks that resolve unit-relative
// references against the configured load paths.
type SearchPathSetter interface {
	SetSearchPaths(paths []string)
}

// Status is the change state of a unit as seen by a Tracker.
type Status int

const (
	StatusUnchanged Status = iota
	StatusNew
	StatusModified
	StatusRemoved
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusRemoved:
		return "removed"
	default:
		return "unchanged"
	}
}

// Change is one entry of a Tracker's detection pass.
type Change struct {
	Path   string
	Status Status
}

// Tracker detects which units changed since they were last loaded.
type Tracker interface {
	// DetectChanges compares the tracked units with the filesystem and
	// returns every known unit with its status, sorted by path.
	DetectChanges(ctx context.Context) ([]Change, error)
	// Status returns the status recorded by the last detection pass.
	Status(path string) (Status, bool)
	// UnloadDefinitions tears down what path defined before it is reloaded.
	UnloadDefinitions(ctx context.Context, path string) error
	// Commit records path as loaded in its current on-disk state.
	Commit(path string) error
	// Lock starts tracking the given units and the globs that produced them.
	Lock(ctx context.Context, globs []string, units []string) error
	// Clear drops all bookkeeping.
	Clear()
}
