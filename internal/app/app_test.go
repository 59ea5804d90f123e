package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/depload/internal/testutil"
)

func TestNewConfig_Validation(t *testing.T) {
	_, err := NewConfig(Config{})
	require.Error(t, err)

	_, err = NewConfig(Config{Root: ".", Debounce: -time.Second})
	require.Error(t, err)

	cfg, err := NewConfig(Config{Root: "."})
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Root)
}

func TestRun_LoadsAndPrints(t *testing.T) {
	root := testutil.TempTree(t, map[string]string{
		"lib/base.hcl":    `lib "base" { prefix = "app" }`,
		"models/user.hcl": `model "user" { table = "${lib.base.prefix}_users" }`,
		"extra/x.hcl":     `extra "x" { on = true }`,
	})
	testApp, logs := SetupAppTest(t, &Config{Root: root, Paths: []string{"extra/*.hcl"}, LogFormat: "text"})

	require.NoError(t, testApp.Run(context.Background()))

	out := logs.String()
	assert.Contains(t, out, `extra.x = {"on":true}`)
	assert.Contains(t, out, `lib.base = {"prefix":"app"}`)
	assert.Contains(t, out, `model.user = {"table":"app_users"}`)
	assert.Contains(t, out, "Symbols loaded.")
	assert.Contains(t, out, "Namespace populated.")
	assert.True(t, testApp.Controller().Loaded())
}

func TestRun_LoadFailure(t *testing.T) {
	root := testutil.TempTree(t, map[string]string{
		"models/user.hcl": `model "user" {`,
	})
	testApp, _ := SetupAppTest(t, &Config{Root: root})

	err := testApp.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load failed")
	assert.False(t, testApp.Controller().Loaded())
}

func TestRun_WatchReloadsUntilCancelled(t *testing.T) {
	root := testutil.TempTree(t, map[string]string{
		"models/user.hcl": `model "user" { table = "users" }`,
	})
	testApp, logs := SetupAppTest(t, &Config{Root: root, Watch: true, Debounce: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- testApp.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Watching for changes.")
	}, 2*time.Second, 10*time.Millisecond)

	testutil.WriteFiles(t, root, map[string]string{
		"models/user.hcl": `model "user" { table = "people" }`,
	})
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), `model.user = {"table":"people"}`)
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRun_WatchPicksUpDirectoryCreatedLater(t *testing.T) {
	root := testutil.TempTree(t, map[string]string{
		"lib/base.hcl": `lib "base" { prefix = "app" }`,
	})
	testApp, logs := SetupAppTest(t, &Config{Root: root, Watch: true, Debounce: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- testApp.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Watching for changes.")
	}, 2*time.Second, 10*time.Millisecond)

	testutil.WriteFiles(t, root, map[string]string{
		"models/user.hcl": `model "user" { table = "${lib.base.prefix}_users" }`,
	})
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), `model.user = {"table":"app_users"}`)
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHealthHandler(t *testing.T) {
	root := testutil.TempTree(t, map[string]string{
		"lib/a.hcl": `lib "a" {}`,
	})
	testApp, _ := SetupAppTest(t, &Config{Root: root})

	rec := httptest.NewRecorder()
	testApp.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unloaded")

	_, err := testApp.Controller().Load(context.Background())
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	testApp.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK 1 symbols\n", rec.Body.String())
}

func TestNewLogger_JSON(t *testing.T) {
	buf := &SafeBuffer{}
	logger := newLogger("warn", "json", buf)

	logger.Info("hidden")
	logger.Warn("Shown.", "key", "value")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Shown.", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
