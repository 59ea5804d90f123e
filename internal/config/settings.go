package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up in the root directory.
const FileName = "depload.yaml"

// Settings is the host configuration. The zero value of a field means
// "not set" so that sources can be merged.
type Settings struct {
	Root            string        `yaml:"root"`
	Paths           []string      `yaml:"paths"`
	LoadPaths       []string      `yaml:"load_paths"`
	Watch           bool          `yaml:"watch"`
	Debounce        time.Duration `yaml:"debounce"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	HealthcheckPort int           `yaml:"healthcheck_port"`
}

// Defaults returns the values used for anything left unset.
func Defaults() Settings {
	return Settings{
		Root:      ".",
		Debounce:  250 * time.Millisecond,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadFile reads settings from a YAML file.
func LoadFile(path string) (Settings, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(payload, &s); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// Resolve merges flags over the settings file and the defaults. When
// configPath is empty, <root>/depload.yaml is used if it exists; an explicit
// configPath must exist. Root is expanded and made absolute.
func Resolve(flags Settings, configPath string) (Settings, error) {
	out := flags

	root := out.Root
	if root == "" {
		root = Defaults().Root
	}
	root, err := ExpandPath(root)
	if err != nil {
		return Settings{}, err
	}

	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(root, FileName)
	}
	configPath, err = ExpandPath(configPath)
	if err != nil {
		return Settings{}, err
	}

	file, err := LoadFile(configPath)
	switch {
	case err == nil:
		if err := mergo.Merge(&out, file, mergo.WithAppendSlice); err != nil {
			return Settings{}, fmt.Errorf("merge %s: %w", configPath, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Settings{}, err
	}

	if err := mergo.Merge(&out, Defaults()); err != nil {
		return Settings{}, fmt.Errorf("apply defaults: %w", err)
	}

	if out.Root, err = ExpandPath(out.Root); err != nil {
		return Settings{}, err
	}
	return out, nil
}

// ExpandPath expands a leading ~ and returns the absolute path.
func ExpandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Abs(expanded)
}
