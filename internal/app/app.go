package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/depload/internal/ctxlog"
	"github.com/vk/depload/internal/hclunit"
	"github.com/vk/depload/internal/lifecycle"
	"github.com/vk/depload/internal/namespace"
	"github.com/vk/depload/internal/tracker"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	ctx        context.Context
	sink       *hclunit.Sink
	controller *lifecycle.Controller
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and namespace.
func NewApp(outW io.Writer, config *Config) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	ns := namespace.New()
	sink := hclunit.New(ns)
	controller := lifecycle.New(sink,
		lifecycle.WithRoot(config.Root),
		lifecycle.WithLogger(logger),
		lifecycle.WithTracker(tracker.New(sink, ns)),
	)
	controller.AppendDependencyPaths(config.Paths...)
	controller.AppendLoadPaths(config.LoadPaths...)
	logger.Debug("Controller configured.",
		"root", controller.Root(),
		"dependency_paths", controller.DependencyPaths(),
		"load_paths", controller.LoadPaths(),
	)

	return &App{
		outW:       outW,
		logger:     logger,
		config:     config,
		ctx:        ctx,
		sink:       sink,
		controller: controller,
	}
}

// Controller returns the lifecycle controller. This is primarily for testing.
func (a *App) Controller() *lifecycle.Controller {
	return a.controller
}

// Namespace returns the store the units are loaded into.
func (a *App) Namespace() *namespace.Store {
	return a.sink.Namespace()
}
