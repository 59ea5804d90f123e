package pathset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, r)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("# unit\n"), 0600))
	}
}

func TestResolve_SortsAndDeduplicates(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "models/b.hcl", "models/a.hcl", "models/nested/c.hcl", "lib/z.hcl")

	got := Resolve(context.Background(), []string{
		filepath.Join(root, "models", "**", "*.hcl"),
		filepath.Join(root, "lib", "*.hcl"),
		filepath.Join(root, "models", "a.hcl"), // overlaps the first glob
	})

	want := []string{
		filepath.Join(root, "lib", "z.hcl"),
		filepath.Join(root, "models", "a.hcl"),
		filepath.Join(root, "models", "b.hcl"),
		filepath.Join(root, "models", "nested", "c.hcl"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_IsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x/1.hcl", "x/2.hcl", "y/3.hcl")
	globs := []string{filepath.Join(root, "**", "*.hcl")}

	first := Resolve(context.Background(), globs)
	second := Resolve(context.Background(), globs)

	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestResolve_EmptyAndMissingAreNotErrors(t *testing.T) {
	root := t.TempDir()

	assert.Empty(t, Resolve(context.Background(), nil))
	assert.Empty(t, Resolve(context.Background(), []string{filepath.Join(root, "nope", "**", "*.hcl")}))
	assert.Empty(t, Resolve(context.Background(), []string{filepath.Join(root, "*.hcl")}))
}

func TestResolve_SkipsDirectories(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "dir.hcl/inner.hcl")

	got := Resolve(context.Background(), []string{filepath.Join(root, "*.hcl")})
	assert.Empty(t, got)
}
