// Package pathset expands dependency globs into the ordered set of file units
// the loader attempts. Expansion supports `**` for recursive matches, drops
// directories, and returns absolute paths that are unique and sorted so load
// attempts are deterministic across runs.
package pathset
