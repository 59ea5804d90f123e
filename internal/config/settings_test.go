package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestResolve_DefaultsOnly(t *testing.T) {
	root := t.TempDir()

	got, err := Resolve(Settings{Root: root}, "")

	require.NoError(t, err)
	want := Defaults()
	want.Root = root
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_FileUnderFlags(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, `
paths:
  - extra/**/*.hcl
watch: true
debounce: 1s
log_level: debug
log_format: json
healthcheck_port: 8080
`)

	got, err := Resolve(Settings{
		Root:     root,
		Paths:    []string{"cli/*.hcl"},
		LogLevel: "warn",
	}, "")

	require.NoError(t, err)
	want := Settings{
		Root:            root,
		Paths:           []string{"cli/*.hcl", "extra/**/*.hcl"},
		Watch:           true,
		Debounce:        time.Second,
		LogLevel:        "warn",
		LogFormat:       "json",
		HealthcheckPort: 8080,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_ExplicitFileMustExist(t *testing.T) {
	_, err := Resolve(Settings{Root: t.TempDir()}, filepath.Join(t.TempDir(), "missing.yaml"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolve_InvalidYAML(t *testing.T) {
	root := t.TempDir()
	writeSettings(t, root, "paths: [unterminated")

	_, err := Resolve(Settings{Root: root}, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), FileName)
}

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	got, err := ExpandPath("~/project")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "project"), got)
}
