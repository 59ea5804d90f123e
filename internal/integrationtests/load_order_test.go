package integration_tests

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/depload/internal/fixpoint"
	"github.com/vk/depload/internal/hooks"
	"github.com/vk/depload/internal/unit"
)

func TestLoad_ResolvesTreeInAnyOrder(t *testing.T) {
	// --- Arrange ---
	// Sorted enumeration puts every dependent before what it needs.
	files := map[string]string{
		"config/database.hcl": `database "main" { url = "postgres://localhost/app" }`,
		"config/apps.hcl": `
app "admin" {
  tables = [for m in [model.account, model.user] : m.table]
}
`,
		"lib/a_format.hcl":   `lib "format" { table = lower(lib.naming.prefix) }`,
		"lib/z_naming.hcl":   `lib "naming" { prefix = upper(shared.settings.name) }`,
		"models/account.hcl": `model "account" { table = "${lib.format.table}_accounts" }`,
		"models/user.hcl": `
model "user" {
  table = "${lib.format.table}_users"
  db    = database.main.url
}
`,
		"shared/lib/config.hcl": `shared "settings" { name = "Shop" }`,
	}

	// --- Act ---
	result := RunIntegrationTest(t, files)

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, "shop_users", result.Value(t, "model", "user", "table").AsString())
	assert.Equal(t, "postgres://localhost/app", result.Value(t, "model", "user", "db").AsString())

	tables := result.Value(t, "app", "admin", "tables").AsValueSlice()
	require.Len(t, tables, 2)
	assert.Equal(t, "shop_accounts", tables[0].AsString())
	assert.Equal(t, "shop_users", tables[1].AsString())

	report := result.App.Controller().LastReport()
	assert.Greater(t, report.Passes, 1, "out-of-order units need more than one pass")
	assert.Len(t, report.Loaded, 6, "every unit but the core one loads exactly once")
}

func TestLoad_ImportsFromLoadPaths(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"models/user.hcl": `
import = ["helpers.hcl"]

model "user" { table = lib.helpers.users }
`,
		"shared/helpers.hcl": `lib "helpers" { users = "people" }`,
	}

	// --- Act ---
	result := RunIntegrationTest(t, files)

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, "people", result.Value(t, "model", "user", "table").AsString())
}

func TestLoad_ExtraDependencyPaths(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"plugins/audit/audit.hcl": `plugin "audit" { target = model.user.table }`,
		"models/user.hcl":         `model "user" { table = "users" }`,
	}

	// --- Act ---
	result := RunIntegrationTest(t, files, "plugins/**/*.hcl")

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, "users", result.Value(t, "plugin", "audit", "target").AsString())
}

func TestLoad_StallNamesLastUnit(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"models/a.hcl": `model "a" { v = model.b.v }`,
		"models/b.hcl": `model "b" { v = model.a.v }`,
		"models/c.hcl": `model "c" { v = 1 }`,
	}

	// --- Act ---
	result := RunIntegrationTest(t, files)

	// --- Assert ---
	var stalled *fixpoint.StalledError
	require.ErrorAs(t, result.Err, &stalled)
	assert.Equal(t, 2, stalled.Pass)
	assert.Equal(t, filepath.Join(result.Root, "models/b.hcl"), stalled.Unit)
	assert.Len(t, stalled.Pending, 2)
	assert.True(t, unit.IsRetryable(stalled.Cause))
	assert.False(t, result.App.Controller().Loaded())
}

func TestLoad_FatalUnitShortCircuits(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"models/a.hcl": `model "a" { v = model.c.v }`,
		"models/b.hcl": `model "b" { v = }`,
		"models/c.hcl": `model "c" { v = 1 }`,
	}

	// --- Act ---
	result := RunIntegrationTest(t, files)

	// --- Assert ---
	var fatal *fixpoint.FatalError
	require.ErrorAs(t, result.Err, &fatal)
	assert.Equal(t, filepath.Join(result.Root, "models/b.hcl"), fatal.Unit)
	_, defined := result.App.Namespace().Lookup("model", "c")
	assert.False(t, defined, "units after the fatal one are not attempted")
}

func TestLoad_HostHooks(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{"models/a.hcl": `model "a" {}`}
	result := RunIntegrationTest(t, files)
	require.NoError(t, result.Err)
	c := result.App.Controller()
	c.Clear(context.Background())

	var order []string
	c.Hooks().RegisterBefore(func(context.Context) error {
		order = append(order, "before")
		// Deferred to the next cycle.
		c.Hooks().RegisterBefore(func(context.Context) error {
			order = append(order, "late")
			return nil
		})
		return nil
	})
	c.Hooks().RegisterAfter(func(context.Context) error {
		order = append(order, "after")
		return errors.New("seed failed")
	})

	// --- Act ---
	_, err := c.Load(context.Background())

	// --- Assert ---
	var hookErr *hooks.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, hooks.After, hookErr.Phase)
	assert.Equal(t, []string{"before", "after"}, order)
	assert.False(t, c.Loaded())
}
