// Package config reads the host settings file (depload.yaml) and combines it
// with the settings given on the command line.
//
// Command-line values win. Lists are concatenated, command-line entries first.
// Anything still unset falls back to Defaults.
package config
