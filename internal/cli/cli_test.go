package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	root := t.TempDir()
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse([]string{root}, out)

	require.NoError(t, err)
	assert.False(t, shouldExit)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.False(t, cfg.Watch)
}

func TestParse_Flags(t *testing.T) {
	root := t.TempDir()

	cfg, _, err := Parse([]string{
		"-r", root,
		"-p", "extra/*.hcl", "--path", "more/**/*.hcl",
		"-w", "--debounce", "1s",
		"--log-level", "DEBUG", "--log-format", "json",
		"--healthcheck-port", "9000",
	}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, []string{"extra/*.hcl", "more/**/*.hcl"}, cfg.Paths)
	assert.True(t, cfg.Watch)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 9000, cfg.HealthcheckPort)
}

func TestParse_SettingsFileUnderFlags(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "depload.yaml"), []byte("log_level: warn\nwatch: true\n"), 0600))

	cfg, _, err := Parse([]string{"--log-level", "error", root}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.True(t, cfg.Watch)
}

func TestParse_ExplicitWatchFalseOverridesSettingsFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "depload.yaml"), []byte("watch: true\n"), 0600))

	cfg, _, err := Parse([]string{"--watch=false", root}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.False(t, cfg.Watch)

	cfg, _, err = Parse([]string{root}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, cfg.Watch, "the settings file applies when the flag is absent")
}

func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}

	cfg, shouldExit, err := Parse([]string{"-h"}, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Errors(t *testing.T) {
	root := t.TempDir()
	cases := map[string][]string{
		"unknown flag":   {"--nope"},
		"bad log format": {"--log-format", "xml", root},
		"bad log level":  {"--log-level", "loud", root},
		"two roots":      {root, root},
		"tiny debounce":  {"--debounce", "1ms", root},
		"missing config": {"--config", filepath.Join(root, "absent.yaml"), root},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse(args, &bytes.Buffer{})

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
