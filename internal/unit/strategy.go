// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package unit

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/depload/internal/ctxlog"
)

// Plain loads every unit it is asked for through the sink. It is used for the
// first load of a program.
type Plain struct {
	Sink Sink
}

// NewPlain returns a Plain loader over sink.
func NewPlain(sink Sink) *Plain {
	return &Plain{Sink: sink}
}

// LoadUnit performs a one-shot load of path.
func (p *Plain) LoadUnit(ctx context.Context, path string) error {
	if err := p.Sink.Load(ctx, path); err != nil {
		return Classify(path, err)
	}
	return nil
}

// ChangeAware loads only units the tracker reports as new or modified. It is
// used for reloads.
type ChangeAware struct {
	Sink    Sink
	Tracker Tracker
}

// NewChangeAware returns a ChangeAware loader over sink and tracker.
func NewChangeAware(sink Sink, tracker Tracker) *ChangeAware {
	return &ChangeAware{Sink: sink, Tracker: tracker}
}

// Prepare runs the tracker's detection pass, tears down every unit that is
// new, modified or removed, and returns the sorted units that must be loaded.
//
// Teardown happens for all changed units before any of them is loaded again,
// so a reloaded unit never resolves references against stale definitions.
func (c *ChangeAware) Prepare(ctx context.Context) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	changes, err := c.Tracker.DetectChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect changes: %w", err)
	}

	var pending []string
	for _, change := range changes {
		if change.Status == StatusUnchanged {
			continue
		}
		logger.Debug("Unit changed.", "unit", change.Path, "status", change.Status.String())
		if err := c.Tracker.UnloadDefinitions(ctx, change.Path); err != nil {
			return nil, Fatal(change.Path, fmt.Errorf("unload definitions: %w", err))
		}
		if change.Status != StatusRemoved {
			pending = append(pending, change.Path)
		}
	}

	sort.Strings(pending)
	logger.Debug("Change detection complete.", "tracked", len(changes), "to_load", len(pending))
	return pending, nil
}

// LoadUnit loads path if the tracker says it changed and records the new
// state on success. Unchanged, removed and unknown units succeed without work.
func (c *ChangeAware) LoadUnit(ctx context.Context, path string) error {
	status, ok := c.Tracker.Status(path)
	if !ok || status == StatusUnchanged || status == StatusRemoved {
		return nil
	}

	if err := c.Sink.Load(ctx, path); err != nil {
		return Classify(path, err)
	}
	if err := c.Tracker.Commit(path); err != nil {
		return Fatal(path, fmt.Errorf("commit tracked state: %w", err))
	}
	return nil
}
