// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package watch reloads a controller when unit files change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vk/depload/internal/ctxlog"
)

// DefaultDebounce is how long the watcher waits after the last event before
// it reloads.
const DefaultDebounce = 250 * time.Millisecond

// unitExt is the extension of files whose changes trigger a reload.
const unitExt = ".hcl"

// Reloader is implemented by *lifecycle.Controller.
type Reloader interface {
	Reload(ctx context.Context) (bool, error)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// OnReload registers fn to be called with the result of every reload.
func OnReload(fn func(reloaded bool, err error)) Option {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// Watcher turns bursts of file events into single reloads.
type Watcher struct {
	reloader Reloader
	debounce time.Duration
	onReload func(bool, error)

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]struct{}
}

// New returns a Watcher that reloads through reloader. Call Add before Run.
func New(reloader Reloader, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		reloader: reloader,
		debounce: DefaultDebounce,
		fsw:      fsw,
		watched:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add watches every directory in dirs and all directories below them.
// Directories that do not exist are skipped.
func (w *Watcher) Add(ctx context.Context, dirs ...string) error {
	logger := ctxlog.FromContext(ctx)
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if !d.IsDir() {
				return nil
			}
			return w.addDir(path)
		})
		if err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	logger.Debug("Watching directories.", "count", len(w.Watched()))
	return nil
}

// AddShallow watches dir itself but not the directories below it. Watching
// the root this way catches glob base directories created after startup;
// relevant then watches them recursively.
func (w *Watcher) AddShallow(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil
	}
	if err := w.addDir(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	ctxlog.FromContext(ctx).Debug("Watching directory without subdirectories.", "path", dir)
	return nil
}

func (w *Watcher) addDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watched[dir]; ok {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return err
	}
	w.watched[dir] = struct{}{}
	return nil
}

// Watched returns the sorted watched directories.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.watched))
	for dir := range w.watched {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

// Run reloads after file activity until ctx is done. It closes the
// underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	logger := ctxlog.FromContext(ctx)
	logger.Info("🔄 Watching for changes.", "directories", len(w.Watched()), "debounce", w.debounce)

	// Since Go 1.23 Stop and Reset never leave a stale value in timer.C.
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Debug("Watcher stopped.")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ctx, event) {
				continue
			}
			logger.Debug("Change detected.", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error.", "error", err)

		case <-timer.C:
			reloaded, err := w.reloader.Reload(ctx)
			if err != nil {
				logger.Error("Reload after change failed.", "error", err)
			} else if reloaded {
				logger.Info("✅ Reloaded after change.")
			}
			if w.onReload != nil {
				w.onReload(reloaded, err)
			}
		}
	}
}

// relevant reports whether event should trigger a reload. New directories are
// watched as they appear.
func (w *Watcher) relevant(ctx context.Context, event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.Add(ctx, event.Name); err != nil {
				ctxlog.FromContext(ctx).Warn("Could not watch new directory.", "path", event.Name, "error", err)
			}
			return true
		}
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), unitExt)
}

// Dirs returns the directories to watch for the given load paths and
// dependency globs: every load path, and the fixed prefix of every glob.
func Dirs(loadPaths, globs []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		out = append(out, dir)
	}
	for _, p := range loadPaths {
		add(p)
	}
	for _, g := range globs {
		add(globBase(g))
	}
	sort.Strings(out)
	return out
}

// globBase returns the longest leading directory of glob free of pattern
// characters.
func globBase(glob string) string {
	dir := filepath.Dir(glob)
	for strings.ContainsAny(dir, "*?[{") {
		dir = filepath.Dir(dir)
	}
	return dir
}
