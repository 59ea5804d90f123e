// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package hclunit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/vk/depload/internal/ctxlog"
	"github.com/vk/depload/internal/namespace"
	"github.com/vk/depload/internal/unit"
)

// importAttr is the only attribute allowed at the top level of a unit.
const importAttr = "import"

// Sink loads HCL units into a namespace. It implements unit.Sink.
type Sink struct {
	ns        *namespace.Store
	functions map[string]function.Function

	mu          sync.Mutex
	loaded      map[string]struct{}
	searchPaths []string
}

// New returns a Sink that defines into ns.
func New(ns *namespace.Store) *Sink {
	return &Sink{
		ns:        ns,
		functions: defaultFunctions(),
		loaded:    make(map[string]struct{}),
	}
}

// Namespace returns the store the sink defines into.
func (s *Sink) Namespace() *namespace.Store {
	return s.ns
}

// SetSearchPaths sets the directories imports are resolved against after the
// importing unit's own directory.
func (s *Sink) SetSearchPaths(paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchPaths = append([]string(nil), paths...)
}

// Load evaluates the unit at path and commits its definitions. Loading a unit
// that is already loaded does nothing.
func (s *Sink) Load(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, path, nil)
}

// Unload removes everything path defined and forgets that it was loaded.
func (s *Sink) Unload(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.ns.RemoveFile(path)
	delete(s.loaded, path)
	ctxlog.FromContext(ctx).Debug("Unit unloaded.", "unit", path, "removed", removed)
	return nil
}

// Reset forgets every loaded unit and empties the namespace.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = make(map[string]struct{})
	s.ns.Reset()
}

// load does the work of Load. stack holds the units whose imports are being
// loaded, to detect import cycles. Callers hold s.mu.
func (s *Sink) load(ctx context.Context, path string, stack []string) error {
	if _, ok := s.loaded[path]; ok {
		return nil
	}
	for _, p := range stack {
		if p == path {
			return unit.Fatal(path, fmt.Errorf("import cycle: %v", append(stack, path)))
		}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return unit.NotFound(path, err)
		}
		return unit.Fatal(path, err)
	}

	file, diags := hclsyntax.ParseConfig(src, path, hcl.InitialPos)
	if diags.HasErrors() {
		return unit.Fatal(path, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return unit.Fatal(path, fmt.Errorf("unexpected body type %T", file.Body))
	}

	deps := make(map[string]struct{})

	imports, err := s.importsOf(path, body)
	if err != nil {
		return err
	}
	for _, imp := range imports {
		if err := s.load(ctx, imp, append(stack, path)); err != nil {
			return wrapImportErr(path, imp, err)
		}
		deps[imp] = struct{}{}
	}

	defs, err := s.evaluate(path, body, deps)
	if err != nil {
		return err
	}

	if err := s.ns.Define(defs...); err != nil {
		return unit.Fatal(path, err)
	}
	s.ns.RecordDeps(path, sortedKeys(deps))
	s.loaded[path] = struct{}{}

	ctxlog.FromContext(ctx).Debug("Unit evaluated.", "unit", path, "definitions", len(defs), "deps", len(deps))
	return nil
}

// importsOf validates the top-level attributes of body and resolves the
// import list to absolute paths.
func (s *Sink) importsOf(path string, body *hclsyntax.Body) ([]string, error) {
	for name, attr := range body.Attributes {
		if name != importAttr {
			return nil, unit.Fatal(path, fmt.Errorf("%s: unsupported top-level attribute %q", attr.SrcRange, name))
		}
	}
	attr, ok := body.Attributes[importAttr]
	if !ok {
		return nil, nil
	}

	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, unit.Fatal(path, diags)
	}
	if !val.Type().IsTupleType() && !val.Type().IsListType() {
		return nil, unit.Fatal(path, fmt.Errorf("%s: import must be a list of paths", attr.SrcRange))
	}

	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if v.IsNull() || v.Type() != cty.String {
			return nil, unit.Fatal(path, fmt.Errorf("%s: import entries must be strings", attr.SrcRange))
		}
		resolved, err := s.resolveImport(path, v.AsString())
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// resolveImport finds rel next to the importing unit, then in each search path.
func (s *Sink) resolveImport(from, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel), nil
	}
	candidates := []string{filepath.Join(filepath.Dir(from), rel)}
	for _, dir := range s.searchPaths {
		candidates = append(candidates, filepath.Join(dir, rel))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(c)
			if err != nil {
				return "", unit.Fatal(from, err)
			}
			return abs, nil
		}
	}
	return "", unit.NotFound(from, fmt.Errorf("import %q not found in %v", rel, candidates))
}

// evaluate checks and evaluates every definition block of body. Blocks may
// reference definitions from earlier blocks of the same unit. Files owning
// referenced definitions are added to deps.
func (s *Sink) evaluate(path string, body *hclsyntax.Body, deps map[string]struct{}) ([]namespace.Definition, error) {
	vars := s.ns.Variables()
	staged := make([]namespace.Definition, 0, len(body.Blocks))
	seen := make(map[string]struct{})

	for _, block := range body.Blocks {
		if len(block.Labels) != 1 {
			return nil, unit.Fatal(path, fmt.Errorf("%s: block %q must have exactly one label", block.DefRange(), block.Type))
		}
		if len(block.Body.Blocks) > 0 {
			return nil, unit.Fatal(path, fmt.Errorf("%s: nested blocks are not supported", block.Body.Blocks[0].DefRange()))
		}
		def := namespace.Definition{Type: block.Type, Name: block.Labels[0], File: path}
		if _, dup := seen[def.Address()]; dup {
			return nil, unit.Fatal(path, fmt.Errorf("%s: %s is defined twice", block.DefRange(), def.Address()))
		}
		seen[def.Address()] = struct{}{}

		if err := s.checkReferences(path, block, vars, deps); err != nil {
			return nil, err
		}

		evalCtx := &hcl.EvalContext{
			Variables: vars,
			Functions: s.functions,
		}
		attrs := make(map[string]cty.Value, len(block.Body.Attributes))
		for name, attr := range block.Body.Attributes {
			val, diags := attr.Expr.Value(evalCtx)
			if diags.HasErrors() {
				return nil, unit.Fatal(path, diags)
			}
			attrs[name] = val
		}

		def.Value = cty.EmptyObjectVal
		if len(attrs) > 0 {
			def.Value = cty.ObjectVal(attrs)
		}
		staged = append(staged, def)
		vars[def.Type] = withAttr(vars, def.Type, def.Name, def.Value)
	}
	return staged, nil
}

// checkReferences returns a retryable error for the first reference in block
// to a definition that is not in vars.
func (s *Sink) checkReferences(path string, block *hclsyntax.Block, vars map[string]cty.Value, deps map[string]struct{}) error {
	names := make([]string, 0, len(block.Body.Attributes))
	for name := range block.Body.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, t := range block.Body.Attributes[name].Expr.Variables() {
			typ, sym, ok := symbolOf(t)
			obj, known := vars[typ]
			if !ok {
				if !known {
					return unit.NameUnresolved(path, fmt.Errorf("%s: %s is not defined", t.SourceRange(), traversalKey(t)))
				}
				continue
			}
			if !known || !obj.Type().HasAttribute(sym) {
				return unit.NameUnresolved(path, fmt.Errorf("%s: %s.%s is not defined", t.SourceRange(), typ, sym))
			}
			if owner, ok := s.ns.Owner(typ, sym); ok && owner != path {
				deps[owner] = struct{}{}
			}
		}
	}
	return nil
}

// withAttr returns the object for typ in vars with name set to val.
func withAttr(vars map[string]cty.Value, typ, name string, val cty.Value) cty.Value {
	attrs := make(map[string]cty.Value)
	if obj, ok := vars[typ]; ok {
		for k, v := range obj.AsValueMap() {
			attrs[k] = v
		}
	}
	attrs[name] = val
	return cty.ObjectVal(attrs)
}

// wrapImportErr reports a failed import as a failure of the importing unit,
// keeping its classification.
func wrapImportErr(path, imp string, err error) error {
	cause := fmt.Errorf("import %s: %w", imp, err)
	if unit.IsRetryable(err) {
		return unit.NotFound(path, cause)
	}
	return unit.Fatal(path, cause)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func defaultFunctions() map[string]function.Function {
	return map[string]function.Function{
		"coalesce":  stdlib.CoalesceFunc,
		"concat":    stdlib.ConcatFunc,
		"format":    stdlib.FormatFunc,
		"join":      stdlib.JoinFunc,
		"keys":      stdlib.KeysFunc,
		"length":    stdlib.LengthFunc,
		"lower":     stdlib.LowerFunc,
		"max":       stdlib.MaxFunc,
		"merge":     stdlib.MergeFunc,
		"min":       stdlib.MinFunc,
		"split":     stdlib.SplitFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"upper":     stdlib.UpperFunc,
		"values":    stdlib.ValuesFunc,
	}
}
