package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/vk/depload/internal/app"
	"github.com/vk/depload/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("depload", pflag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
depload - Loads a tree of interdependent HCL units in any order.

Usage:
  depload [options] [ROOT]

Arguments:
  ROOT
    Directory the dependency globs and load paths are relative to.
    Defaults to the current directory.

Options:
`)
		flagSet.PrintDefaults()
	}

	rootFlag := flagSet.StringP("root", "r", "", "Root directory of the program.")
	pathFlag := flagSet.StringArrayP("path", "p", nil, "Extra dependency glob to load. Repeatable.")
	loadPathFlag := flagSet.StringArray("load-path", nil, "Extra directory imports are resolved against. Repeatable.")
	watchFlag := flagSet.BoolP("watch", "w", false, "Keep running and reload when unit files change.")
	debounceFlag := flagSet.Duration("debounce", 0, "Quiet period after a change before reloading (default 250ms).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json' (default text).")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error' (default info).")
	configFlag := flagSet.String("config", "", "Settings file (default <ROOT>/"+config.FileName+").")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "at most one ROOT argument is allowed"}
	}

	// Only explicitly set flags override the settings file.
	flags := config.Settings{
		Root:            *rootFlag,
		Paths:           *pathFlag,
		LoadPaths:       *loadPathFlag,
		Watch:           *watchFlag,
		Debounce:        *debounceFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       strings.ToLower(*logFormatFlag),
		LogLevel:        strings.ToLower(*logLevelFlag),
	}
	if flags.Root == "" && flagSet.NArg() == 1 {
		flags.Root = flagSet.Arg(0)
	}
	slog.Debug("Root determined.", "root", flags.Root)

	settings, err := config.Resolve(flags, *configFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	// The merge cannot tell --watch=false from an unset flag.
	if flagSet.Changed("watch") {
		settings.Watch = *watchFlag
	}

	if settings.LogFormat != "text" && settings.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	switch settings.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if settings.Debounce < 10*time.Millisecond {
		return nil, false, &ExitError{Code: 2, Message: "invalid debounce: must be at least 10ms"}
	}
	slog.Debug("CLI parameter validation complete.")

	cfg, err := app.NewConfig(app.Config{
		Root:            settings.Root,
		Paths:           settings.Paths,
		LoadPaths:       settings.LoadPaths,
		Watch:           settings.Watch,
		Debounce:        settings.Debounce,
		HealthcheckPort: settings.HealthcheckPort,
		LogFormat:       settings.LogFormat,
		LogLevel:        settings.LogLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}
