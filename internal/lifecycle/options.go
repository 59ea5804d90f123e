// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package lifecycle

import (
	"log/slog"

	"github.com/vk/depload/internal/unit"
)

// DefaultDependencyPaths are the globs, relative to the root, loaded by
// default. config/database.hcl is also a core unit.
var DefaultDependencyPaths = []string{
	"config/database.hcl",
	"lib/**/*.hcl",
	"shared/lib/**/*.hcl",
	"models/**/*.hcl",
	"shared/models/**/*.hcl",
	"config/apps.hcl",
}

// DefaultLoadPaths are the directories, relative to the root, that units can
// import from by relative path.
var DefaultLoadPaths = []string{"lib", "models", "shared"}

// DefaultCorePaths are the units loaded once, without retries, before the
// before hooks run.
var DefaultCorePaths = []string{"config/database.hcl"}

// Option configures a Controller.
type Option func(*Controller)

// WithRoot sets the directory relative paths are resolved against. It
// defaults to the working directory.
func WithRoot(root string) Option {
	return func(c *Controller) {
		c.root = root
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithTracker sets the change tracker used by Reload.
func WithTracker(tracker unit.Tracker) Option {
	return func(c *Controller) {
		c.tracker = tracker
	}
}

// WithDependencyPaths replaces the default dependency globs.
func WithDependencyPaths(globs ...string) Option {
	return func(c *Controller) {
		c.initialDeps = append([]string(nil), globs...)
	}
}

// WithLoadPaths replaces the default load paths.
func WithLoadPaths(paths ...string) Option {
	return func(c *Controller) {
		c.initialLoad = append([]string(nil), paths...)
	}
}

// WithCorePaths replaces the default core units. Pass nothing to disable
// core loading.
func WithCorePaths(paths ...string) Option {
	return func(c *Controller) {
		c.initialCore = append([]string(nil), paths...)
	}
}
