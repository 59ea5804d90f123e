// Package namespace is the definition store shared by every loaded unit.
//
// A definition is addressed as <type>.<name> and owned by the file that
// declared it. The store also remembers which files each file's definitions
// referenced, so a change to one file can be propagated to its dependents.
package namespace
