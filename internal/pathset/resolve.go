// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package pathset

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/mattn/go-zglob"
	"github.com/vk/depload/internal/ctxlog"
)

// Resolve expands every glob in globs and returns the deduplicated,
// lexicographically sorted list of matching files.
//
// A glob that matches nothing, or whose base directory does not exist, simply
// contributes nothing. A malformed pattern is logged and skipped.
func Resolve(ctx context.Context, globs []string) []string {
	logger := ctxlog.FromContext(ctx)

	seen := make(map[string]struct{})
	files := make([]string, 0)

	for _, glob := range globs {
		matches, err := zglob.Glob(glob)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Skipping unusable dependency glob.", "glob", glob, "error", err)
			}
			continue
		}

		for _, match := range matches {
			path, ok := canonicalFile(match)
			if !ok {
				continue
			}
			if _, wasSeen := seen[path]; wasSeen {
				continue
			}
			seen[path] = struct{}{}
			files = append(files, path)
		}
	}

	sort.Strings(files)
	logger.Debug("Resolved dependency globs.", "glob_count", len(globs), "file_count", len(files))
	return files
}

// canonicalFile returns the absolute, cleaned form of p when it names a
// regular file (or a symlink to one).
func canonicalFile(p string) (string, bool) {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", false
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	return filepath.Clean(abs), true
}
