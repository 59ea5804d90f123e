// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package fixpoint

import (
	"fmt"
	"strings"
)

// StalledError means a full pass loaded no unit while units were pending.
type StalledError struct {
	// Unit and Cause describe the most recent retryable failure of the pass.
	Unit  string
	Cause error
	// Pending lists the units that could not be loaded, sorted.
	Pending []string
	// Errors aggregates every retryable failure of the stalled pass.
	Errors error
	// Pass is the 1-based number of the pass that made no progress.
	Pass int
}

func (e *StalledError) Error() string {
	return fmt.Sprintf("dependency loading stalled after pass %d with %d unit(s) pending [%s]: %v",
		e.Pass, len(e.Pending), strings.Join(e.Pending, ", "), e.Cause)
}

func (e *StalledError) Unwrap() error {
	return e.Cause
}

// FatalError means one unit failed with a non-retryable error.
type FatalError struct {
	Unit  string
	Cause error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error loading %s: %v", e.Unit, e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}
