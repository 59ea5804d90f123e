// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package namespace

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Definition is one named value declared by a unit.
type Definition struct {
	Type  string
	Name  string
	Value cty.Value
	File  string
}

// Address returns "<type>.<name>".
func (d Definition) Address() string {
	return d.Type + "." + d.Name
}

// RedefinitionError means a symbol is already owned by another file.
type RedefinitionError struct {
	Address string
	Owner   string
	File    string
}

func (e *RedefinitionError) Error() string {
	return fmt.Sprintf("%s is already defined by %s", e.Address, e.Owner)
}

// Store implements the namespace using maps guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	defs    map[string]map[string]Definition // type -> name -> definition
	deps    map[string]map[string]struct{}   // file -> files it referenced
	revDeps map[string]map[string]struct{}   // file -> files referencing it
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		defs:    make(map[string]map[string]Definition),
		deps:    make(map[string]map[string]struct{}),
		revDeps: make(map[string]map[string]struct{}),
	}
}

// Define commits defs atomically: either every definition is stored or, when
// one of them would overwrite a symbol owned by a different file, none is.
func (s *Store) Define(defs ...Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range defs {
		if existing, ok := s.defs[d.Type][d.Name]; ok && existing.File != d.File {
			return &RedefinitionError{Address: d.Address(), Owner: existing.File, File: d.File}
		}
	}

	for _, d := range defs {
		if s.defs[d.Type] == nil {
			s.defs[d.Type] = make(map[string]Definition)
		}
		s.defs[d.Type][d.Name] = d
	}
	return nil
}

// Lookup returns the definition for <typ>.<name>.
func (s *Store) Lookup(typ, name string) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.defs[typ][name]
	return d, ok
}

// Owner returns the file that defines <typ>.<name>.
func (s *Store) Owner(typ, name string) (string, bool) {
	d, ok := s.Lookup(typ, name)
	return d.File, ok
}

// RemoveFile drops every definition owned by file along with the dependency
// edges it recorded, and returns the removed addresses sorted.
func (s *Store) RemoveFile(file string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for typ, byName := range s.defs {
		for name, d := range byName {
			if d.File != file {
				continue
			}
			delete(byName, name)
			removed = append(removed, d.Address())
		}
		if len(byName) == 0 {
			delete(s.defs, typ)
		}
	}

	for dep := range s.deps[file] {
		delete(s.revDeps[dep], file)
	}
	delete(s.deps, file)

	sort.Strings(removed)
	return removed
}

// RecordDeps replaces the set of files that file's definitions referenced.
// Self references are ignored.
func (s *Store) RecordDeps(file string, deps []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for dep := range s.deps[file] {
		delete(s.revDeps[dep], file)
	}
	set := make(map[string]struct{}, len(deps))
	for _, dep := range deps {
		if dep == file {
			continue
		}
		set[dep] = struct{}{}
		if s.revDeps[dep] == nil {
			s.revDeps[dep] = make(map[string]struct{})
		}
		s.revDeps[dep][file] = struct{}{}
	}
	s.deps[file] = set
}

// Dependents returns every file that directly or transitively referenced
// definitions of file, sorted. The file itself is not included.
func (s *Store) Dependents(file string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{file: {}}
	queue := []string{file}
	var out []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for dependent := range s.revDeps[current] {
			if _, ok := seen[dependent]; ok {
				continue
			}
			seen[dependent] = struct{}{}
			out = append(out, dependent)
			queue = append(queue, dependent)
		}
	}
	sort.Strings(out)
	return out
}

// Variables returns the namespace as HCL evaluation variables: one object per
// type, each mapping names to values.
func (s *Store) Variables() map[string]cty.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vars := make(map[string]cty.Value, len(s.defs))
	for typ, byName := range s.defs {
		attrs := make(map[string]cty.Value, len(byName))
		for name, d := range byName {
			attrs[name] = d.Value
		}
		vars[typ] = cty.ObjectVal(attrs)
	}
	return vars
}

// Symbols returns every defined address, sorted.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, byName := range s.defs {
		for _, d := range byName {
			out = append(out, d.Address())
		}
	}
	sort.Strings(out)
	return out
}

// Definitions returns every definition sorted by address.
func (s *Store) Definitions() []Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Definition
	for _, byName := range s.defs {
		for _, d := range byName {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address() < out[j].Address() })
	return out
}

// Len returns the number of definitions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, byName := range s.defs {
		n += len(byName)
	}
	return n
}

// Reset empties the store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = make(map[string]map[string]Definition)
	s.deps = make(map[string]map[string]struct{})
	s.revDeps = make(map[string]map[string]struct{})
}
