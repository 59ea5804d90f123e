// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package hclunit

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// traversalKey renders a traversal as it is written in source, e.g. model.user.table.
func traversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// symbolOf returns the <type>, <name> pair a traversal refers to. ok is false
// when the traversal stops at the type (e.g. `model`) or indexes it with a
// non-string key.
func symbolOf(t hcl.Traversal) (typ, name string, ok bool) {
	typ = t.RootName()
	if len(t) < 2 {
		return typ, "", false
	}
	switch step := t[1].(type) {
	case hcl.TraverseAttr:
		return typ, step.Name, true
	case hcl.TraverseIndex:
		if step.Key.Type() == cty.String && step.Key.IsKnown() && !step.Key.IsNull() {
			return typ, step.Key.AsString(), true
		}
	}
	return typ, "", false
}
