// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package tracker implements unit.Tracker by comparing file modification time
// and size against the values recorded when each unit was last loaded.
package tracker

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/vk/depload/internal/ctxlog"
	"github.com/vk/depload/internal/pathset"
	"github.com/vk/depload/internal/unit"
)

// DependencyIndex reports which files depend, directly or transitively, on a
// file. *namespace.Store implements it.
type DependencyIndex interface {
	Dependents(file string) []string
}

// Unloader tears down a unit's definitions. Every unit.Sink is one.
type Unloader interface {
	Unload(ctx context.Context, path string) error
}

type stamp struct {
	modTime time.Time
	size    int64
	// dirty marks a unit that was unloaded and not loaded again since.
	dirty bool
}

// Tracker is a stat based unit.Tracker. Safe for concurrent use.
type Tracker struct {
	unloader Unloader
	index    DependencyIndex

	mu      sync.Mutex
	globs   []string
	tracked map[string]stamp
	status  map[string]unit.Status
}

var _ unit.Tracker = (*Tracker)(nil)

// New returns a Tracker that unloads through unloader and cascades changes
// along index. index may be nil, in which case nothing cascades.
func New(unloader Unloader, index DependencyIndex) *Tracker {
	return &Tracker{
		unloader: unloader,
		index:    index,
		tracked:  make(map[string]stamp),
		status:   make(map[string]unit.Status),
	}
}

// Lock records globs and the current on-disk state of units.
func (t *Tracker) Lock(ctx context.Context, globs []string, units []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.globs = append([]string(nil), globs...)
	for _, path := range units {
		s, err := statFile(path)
		if err != nil {
			return fmt.Errorf("lock %s: %w", path, err)
		}
		t.tracked[path] = s
		t.status[path] = unit.StatusUnchanged
	}
	ctxlog.FromContext(ctx).Debug("Tracker locked.", "globs", len(t.globs), "units", len(t.tracked))
	return nil
}

// DetectChanges re-resolves the locked globs and classifies every known unit.
// Modified and removed units mark their dependents as modified.
func (t *Tracker) DetectChanges(ctx context.Context) ([]unit.Change, error) {
	logger := ctxlog.FromContext(ctx)
	current := pathset.Resolve(ctx, t.Globs())

	t.mu.Lock()
	defer t.mu.Unlock()

	status := make(map[string]unit.Status, len(current))
	present := make(map[string]struct{}, len(current))

	for _, path := range current {
		present[path] = struct{}{}
		old, ok := t.tracked[path]
		if !ok {
			status[path] = unit.StatusNew
			continue
		}
		s, err := statFile(path)
		if err != nil {
			// Gone between the glob and the stat.
			status[path] = unit.StatusRemoved
			continue
		}
		if old.dirty || !s.modTime.Equal(old.modTime) || s.size != old.size {
			status[path] = unit.StatusModified
		} else {
			status[path] = unit.StatusUnchanged
		}
	}
	for path := range t.tracked {
		if _, ok := present[path]; !ok {
			status[path] = unit.StatusRemoved
		}
	}

	if t.index != nil {
		var roots []string
		for path, st := range status {
			if st == unit.StatusModified || st == unit.StatusRemoved {
				roots = append(roots, path)
			}
		}
		sort.Strings(roots)
		for _, root := range roots {
			for _, dep := range t.index.Dependents(root) {
				if st, ok := status[dep]; ok && st == unit.StatusUnchanged {
					status[dep] = unit.StatusModified
					logger.Debug("Dependent marked modified.", "unit", dep, "because", root)
				}
			}
		}
	}

	for path, st := range status {
		if st == unit.StatusRemoved {
			delete(t.tracked, path)
		}
	}
	t.status = status

	changes := make([]unit.Change, 0, len(status))
	for path, st := range status {
		changes = append(changes, unit.Change{Path: path, Status: st})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// Status returns the status recorded for path by the last detection pass.
func (t *Tracker) Status(path string) (unit.Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.status[path]
	return st, ok
}

// UnloadDefinitions unloads path through the unloader. Until path is
// committed again, later detection passes report it as modified.
func (t *Tracker) UnloadDefinitions(ctx context.Context, path string) error {
	if err := t.unloader.Unload(ctx, path); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.tracked[path]; ok {
		s.dirty = true
		t.tracked[path] = s
	}
	return nil
}

// Commit records the current on-disk state of path.
func (t *Tracker) Commit(path string) error {
	s, err := statFile(path)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracked[path] = s
	t.status[path] = unit.StatusUnchanged
	return nil
}

// Clear drops every tracked unit and the locked globs.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.globs = nil
	t.tracked = make(map[string]stamp)
	t.status = make(map[string]unit.Status)
}

// Globs returns the globs recorded by Lock.
func (t *Tracker) Globs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.globs...)
}

func statFile(path string) (stamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return stamp{}, err
	}
	return stamp{modTime: info.ModTime(), size: info.Size()}, nil
}
