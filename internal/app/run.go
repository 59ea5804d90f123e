package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/depload/internal/ctxlog"
	"github.com/vk/depload/internal/telemetry"
	"github.com/vk/depload/internal/watch"
)

// Run loads every unit under the root and prints the resulting symbols. With
// Watch set it then reloads on file changes until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.OptionsFromEnv())
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			a.logger.Warn("Trace exporter shutdown failed.", "error", err)
		}
	}()

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	a.logger.Info("🚀 Loading units...", "root", a.controller.Root())
	if _, err := a.controller.Load(ctx); err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	a.logger.Debug("Namespace populated.", "symbols", a.Namespace().Symbols())
	if err := a.PrintSymbols(); err != nil {
		return err
	}

	if !a.config.Watch {
		a.logger.Debug("App.Run method finished.")
		return nil
	}

	w, err := watch.New(a.controller,
		watch.WithDebounce(a.config.Debounce),
		watch.OnReload(func(reloaded bool, err error) {
			if reloaded && err == nil {
				if err := a.PrintSymbols(); err != nil {
					a.logger.Error("Printing symbols failed.", "error", err)
				}
			}
		}),
	)
	if err != nil {
		return err
	}
	if err := w.Add(ctx, watch.Dirs(a.controller.LoadPaths(), a.controller.DependencyPaths())...); err != nil {
		return err
	}
	if err := w.AddShallow(ctx, a.controller.Root()); err != nil {
		return err
	}
	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	a.logger.Info("🏁 Watch finished.")
	return nil
}
