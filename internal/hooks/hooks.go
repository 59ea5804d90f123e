// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package hooks keeps the ordered callbacks that run before and after every
// load or reload cycle.
package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/depload/internal/ctxlog"
	stacked "github.com/vk/depload/internal/errors"
)

// Hook is a callback run around a load cycle. The context carries the cycle's
// logger, tagged with the phase, and trace span.
//
// A hook runs while the controller holds its cycle lock. It may register
// hooks and append paths, but must not call Load, Reload or Clear on the
// controller running it; that deadlocks.
type Hook func(ctx context.Context) error

// Phase names the list a hook belongs to.
type Phase string

const (
	Before Phase = "before"
	After  Phase = "after"
)

// HookError is returned when a hook fails. Hooks after it did not run.
type HookError struct {
	Phase Phase
	Index int
	Cause error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s-load hook #%d failed: %v", e.Phase, e.Index, e.Cause)
}

func (e *HookError) Unwrap() error {
	return e.Cause
}

// Registry holds the before and after hook lists. Registration order is
// invocation order and nothing is deduplicated. Safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	before []Hook
	after  []Hook
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// RegisterBefore appends fn to the before-load list.
func (r *Registry) RegisterBefore(fn Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before = append(r.before, fn)
}

// RegisterAfter appends fn to the after-load list.
func (r *Registry) RegisterAfter(fn Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.after = append(r.after, fn)
}

// RunBefore runs the before-load hooks.
func (r *Registry) RunBefore(ctx context.Context) error {
	return r.run(ctx, Before)
}

// RunAfter runs the after-load hooks.
func (r *Registry) RunAfter(ctx context.Context) error {
	return r.run(ctx, After)
}

// Len returns the number of hooks registered for phase.
func (r *Registry) Len(phase Phase) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list(phase))
}

// Reset drops every registered hook.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before = nil
	r.after = nil
}

func (r *Registry) list(phase Phase) []Hook {
	if phase == Before {
		return r.before
	}
	return r.after
}

// run calls a snapshot of the phase's hooks in order. Hooks registered while
// it runs are picked up by the next run. A panicking hook counts as failed.
func (r *Registry) run(ctx context.Context, phase Phase) error {
	r.mu.Lock()
	snapshot := append([]Hook(nil), r.list(phase)...)
	r.mu.Unlock()

	ctx = ctxlog.With(ctx, "phase", string(phase))
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running load hooks.", "count", len(snapshot))

	for i, hook := range snapshot {
		if err := call(ctx, hook); err != nil {
			logger.Error("Load hook failed.", "index", i, "error", err)
			return &HookError{Phase: phase, Index: i, Cause: stacked.WithStackTrace(err)}
		}
	}
	return nil
}

func call(ctx context.Context, hook Hook) (err error) {
	defer stacked.Recover(func(cause error) {
		err = cause
	})
	return hook(ctx)
}
