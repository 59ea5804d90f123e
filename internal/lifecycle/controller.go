// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/depload/internal/ctxlog"
	stacked "github.com/vk/depload/internal/errors"
	"github.com/vk/depload/internal/fixpoint"
	"github.com/vk/depload/internal/hooks"
	"github.com/vk/depload/internal/pathset"
	"github.com/vk/depload/internal/tracker"
	"github.com/vk/depload/internal/unit"
)

const tracerName = "github.com/vk/depload/internal/lifecycle"

// resetter is implemented by sinks that can forget everything they loaded.
type resetter interface {
	Reset()
}

// Controller drives load, reload and clear cycles over a unit sink.
// Cycles are serialized; hooks run inside a cycle and must not call Load,
// Reload or Clear on the same Controller.
type Controller struct {
	sink    unit.Sink
	tracker unit.Tracker
	hooks   *hooks.Registry
	logger  *slog.Logger
	root    string

	initialDeps []string
	initialLoad []string
	initialCore []string

	// mu serializes whole cycles.
	mu    sync.Mutex
	state atomic.Int32

	// cfgMu guards the fields below so hooks can read them during a cycle.
	cfgMu     sync.RWMutex
	depPaths  []string
	loadPaths []string
	corePaths []string
	origin    string
	report    fixpoint.Report
}

// New returns an Unloaded Controller over sink.
func New(sink unit.Sink, opts ...Option) *Controller {
	c := &Controller{
		sink:        sink,
		hooks:       hooks.New(),
		initialDeps: DefaultDependencyPaths,
		initialLoad: DefaultLoadPaths,
		initialCore: DefaultCorePaths,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.root == "" {
		if wd, err := os.Getwd(); err == nil {
			c.root = wd
		}
	}
	if abs, err := filepath.Abs(c.root); err == nil {
		c.root = abs
	}
	if c.tracker == nil {
		c.tracker = tracker.New(sink, nil)
	}
	c.resetPaths()
	return c
}

// Load loads every unit matched by the dependency paths. It returns false
// without doing anything when the controller is already loaded. On failure
// the controller is Unloaded again; units that did load stay loaded.
func (c *Controller) Load(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx = c.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)

	if c.State() == Loaded {
		logger.Debug("Load skipped, already loaded.")
		return false, nil
	}

	if _, file, line, ok := runtime.Caller(1); ok {
		c.captureOrigin(fmt.Sprintf("%s:%d", file, line))
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "lifecycle.load")
	defer span.End()

	c.setState(Loading)
	if err := c.load(ctx, span); err != nil {
		c.setState(Unloaded)
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		logger.Error("Load failed.", "error", err)
		logger.Debug("Load failure detail.", "trace", stacked.ErrorWithStackTrace(err))
		return false, err
	}
	c.setState(Loaded)
	return true, nil
}

func (c *Controller) load(ctx context.Context, span trace.Span) error {
	logger := ctxlog.FromContext(ctx)
	c.applySearchPaths()

	coreUnits := pathset.Resolve(ctx, c.CorePaths())
	plain := unit.NewPlain(c.sink)
	for _, path := range coreUnits {
		if err := plain.LoadUnit(ctx, path); err != nil {
			return &fixpoint.FatalError{Unit: path, Cause: stacked.WithStackTrace(err)}
		}
		logger.Debug("Core unit loaded.", "unit", path)
	}

	if err := c.hooks.RunBefore(ctx); err != nil {
		return err
	}

	globs := c.DependencyPaths()
	core := make(map[string]struct{}, len(coreUnits))
	for _, path := range coreUnits {
		core[path] = struct{}{}
	}
	var units []string
	for _, path := range pathset.Resolve(ctx, globs) {
		if _, ok := core[path]; !ok {
			units = append(units, path)
		}
	}
	logger.Debug("Dependency units resolved.", "globs", len(globs), "units", len(units), "core", len(coreUnits))

	report, err := fixpoint.Run(ctx, units, plain)
	c.setReport(report)
	span.SetAttributes(
		attribute.Int("units", len(units)),
		attribute.Int("passes", report.Passes),
		attribute.Int("attempts", report.Attempts),
	)
	if err != nil {
		return err
	}

	if err := c.hooks.RunAfter(ctx); err != nil {
		return err
	}

	tracked := append(append([]string(nil), coreUnits...), report.Loaded...)
	if err := c.tracker.Lock(ctx, append(c.CorePaths(), globs...), tracked); err != nil {
		return stacked.WithStackTraceAndPrefix(err, "start change tracking")
	}

	logger.Info("Units loaded.", "units", len(tracked), "passes", report.Passes, "attempts", report.Attempts)
	return nil
}

// Reload loads the units that changed since the last cycle. It returns false
// without doing anything unless the controller is Loaded. The controller is
// Loaded again afterwards, also when the reload fails.
func (c *Controller) Reload(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx = c.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)

	if st := c.State(); st != Loaded {
		logger.Debug("Reload skipped, not loaded.", "state", st.String())
		return false, nil
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "lifecycle.reload")
	defer span.End()

	c.setState(Reloading)
	defer c.setState(Loaded)

	if err := c.reload(ctx, span); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reload failed")
		logger.Error("Reload failed.", "error", err)
		logger.Debug("Reload failure detail.", "trace", stacked.ErrorWithStackTrace(err))
		return false, err
	}
	return true, nil
}

func (c *Controller) reload(ctx context.Context, span trace.Span) error {
	c.applySearchPaths()

	if err := c.hooks.RunBefore(ctx); err != nil {
		return err
	}

	strategy := unit.NewChangeAware(c.sink, c.tracker)
	pending, err := strategy.Prepare(ctx)
	if err != nil {
		return stacked.WithStackTrace(err)
	}

	report, err := fixpoint.Run(ctx, pending, strategy)
	c.setReport(report)
	span.SetAttributes(
		attribute.Int("units", len(pending)),
		attribute.Int("passes", report.Passes),
		attribute.Int("attempts", report.Attempts),
	)
	if err != nil {
		return err
	}

	if err := c.hooks.RunAfter(ctx); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("Units reloaded.", "units", len(report.Loaded), "passes", report.Passes)
	return nil
}

// Clear resets the path configuration, both hook lists and the change
// tracker, forgets the origin and moves to Unloaded. A sink with a Reset
// method is reset too. Clear waits for a running cycle to finish.
func (c *Controller) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetPaths()
	c.hooks.Reset()
	c.tracker.Clear()
	if r, ok := c.sink.(resetter); ok {
		r.Reset()
	}
	c.setState(Unloaded)

	ctxlog.FromContext(c.withLogger(ctx)).Debug("Controller cleared.")
}

// Loaded reports whether units are loaded. It is true during a reload.
func (c *Controller) Loaded() bool {
	st := c.State()
	return st == Loaded || st == Reloading
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Origin returns file:line of the first Load call since the last Clear.
func (c *Controller) Origin() string {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.origin
}

func (c *Controller) captureOrigin(origin string) {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	if c.origin == "" {
		c.origin = origin
	}
}

// LastReport returns the fixpoint report of the most recent cycle.
func (c *Controller) LastReport() fixpoint.Report {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.report
}

func (c *Controller) setReport(r fixpoint.Report) {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	c.report = r
}

// Hooks returns the hook registry run around every cycle.
func (c *Controller) Hooks() *hooks.Registry {
	return c.hooks
}

// Root returns the directory relative paths are resolved against.
func (c *Controller) Root() string {
	return c.root
}

// AppendLoadPaths adds directories units can import from. Paths already
// present are skipped.
func (c *Controller) AppendLoadPaths(paths ...string) {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	for _, p := range paths {
		abs := c.abs(p)
		if !slices.Contains(c.loadPaths, abs) {
			c.loadPaths = append(c.loadPaths, abs)
		}
	}
}

// AppendDependencyPaths adds globs to load.
func (c *Controller) AppendDependencyPaths(globs ...string) {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	for _, g := range globs {
		c.depPaths = append(c.depPaths, c.abs(g))
	}
}

// LoadPaths returns the absolute load paths.
func (c *Controller) LoadPaths() []string {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return append([]string(nil), c.loadPaths...)
}

// DependencyPaths returns the absolute dependency globs.
func (c *Controller) DependencyPaths() []string {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return append([]string(nil), c.depPaths...)
}

// CorePaths returns the absolute core unit globs.
func (c *Controller) CorePaths() []string {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return append([]string(nil), c.corePaths...)
}

// resetPaths restores the configured paths and forgets origin and report.
func (c *Controller) resetPaths() {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	c.depPaths = c.absAll(c.initialDeps)
	c.loadPaths = nil
	for _, p := range c.absAll(c.initialLoad) {
		if !slices.Contains(c.loadPaths, p) {
			c.loadPaths = append(c.loadPaths, p)
		}
	}
	c.corePaths = c.absAll(c.initialCore)
	c.origin = ""
	c.report = fixpoint.Report{}
}

func (c *Controller) applySearchPaths() {
	if setter, ok := c.sink.(unit.SearchPathSetter); ok {
		setter.SetSearchPaths(c.LoadPaths())
	}
}

func (c *Controller) withLogger(ctx context.Context) context.Context {
	if c.logger == nil {
		return ctx
	}
	return ctxlog.WithLogger(ctx, c.logger)
}

func (c *Controller) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.root, p)
}

func (c *Controller) absAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, c.abs(p))
	}
	return out
}
