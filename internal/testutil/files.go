// Package testutil holds fixtures shared by the loader's tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFiles creates each file in files (relative path to content) under root
// and returns their absolute paths, sorted.
func WriteFiles(t *testing.T, root string, files map[string]string) []string {
	t.Helper()

	paths := make([]string, 0, len(files))
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755), "failed to create directory for %s", rel)
		require.NoError(t, os.WriteFile(path, []byte(content), 0600), "failed to write %s", rel)
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// TempTree is WriteFiles into a fresh t.TempDir. It returns the root.
func TempTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, files)
	return root
}
