package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Root      string   // directory relative globs and load paths are resolved against
	Paths     []string // extra dependency globs
	LoadPaths []string // extra import search directories

	Watch    bool
	Debounce time.Duration

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Root == "" {
		return nil, errors.New("Root is a required configuration field and cannot be empty")
	}
	if cfg.Debounce < 0 {
		return nil, errors.New("Debounce cannot be negative")
	}
	return &cfg, nil
}
