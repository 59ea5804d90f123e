package integration_tests

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/depload/internal/app"
	"github.com/vk/depload/internal/testutil"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Root      string
	LogOutput string
	Err       error
	App       *app.App
}

// Value returns the attribute attr of the loaded definition typ.name.
func (r *HarnessResult) Value(t *testing.T, typ, name, attr string) cty.Value {
	t.Helper()
	def, ok := r.App.Namespace().Lookup(typ, name)
	require.True(t, ok, "%s.%s is not defined", typ, name)
	return def.Value.GetAttr(attr)
}

// RunIntegrationTest writes files into a fresh root and loads it through the
// full application stack. Extra dependency globs are relative to the root.
func RunIntegrationTest(t *testing.T, files map[string]string, paths ...string) *HarnessResult {
	t.Helper()

	root := testutil.TempTree(t, files)
	testApp, logs := app.SetupAppTest(t, &app.Config{Root: root, Paths: paths, LogFormat: "text"})

	_, err := testApp.Controller().Load(context.Background())

	t.Cleanup(func() {
		if os.Getenv("DEPLOAD_TEST_LOGS") == "true" {
			t.Logf("--- Load error for %s ---\n%v", t.Name(), err)
		}
	})

	return &HarnessResult{Root: root, LogOutput: logs.String(), Err: err, App: testApp}
}
