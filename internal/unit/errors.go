// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package unit

import (
	"errors"
	"fmt"
)

// Kind classifies why a unit failed to load.
type Kind int

const (
	// KindOther is any failure that is not caused by load order. Fatal.
	KindOther Kind = iota
	// KindNotFound means a file the unit needs is missing or not loaded yet.
	KindNotFound
	// KindNameUnresolved means the unit references a name nobody defined yet.
	KindNameUnresolved
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNameUnresolved:
		return "name_unresolved"
	default:
		return "other"
	}
}

// Retryable reports whether a failure of this kind may resolve itself once
// other units have loaded.
func (k Kind) Retryable() bool {
	return k == KindNotFound || k == KindNameUnresolved
}

// LoadError is the failure of one attempt to load one unit.
type LoadError struct {
	Unit  string
	Kind  Kind
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load unit %s (%s): %v", e.Unit, e.Kind, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure is caused by load order.
func (e *LoadError) Retryable() bool {
	return e.Kind.Retryable()
}

// NotFound builds a retryable LoadError for a missing file.
func NotFound(unit string, cause error) *LoadError {
	return &LoadError{Unit: unit, Kind: KindNotFound, Cause: cause}
}

// NameUnresolved builds a retryable LoadError for an undefined reference.
func NameUnresolved(unit string, cause error) *LoadError {
	return &LoadError{Unit: unit, Kind: KindNameUnresolved, Cause: cause}
}

// Fatal builds a non-retryable LoadError.
func Fatal(unit string, cause error) *LoadError {
	return &LoadError{Unit: unit, Kind: KindOther, Cause: cause}
}

// Classify returns err as a *LoadError for unit. Errors that carry no
// classification are fatal.
func Classify(unit string, err error) *LoadError {
	if err == nil {
		return nil
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	return Fatal(unit, err)
}

// IsRetryable reports whether err is a retryable *LoadError.
func IsRetryable(err error) bool {
	var loadErr *LoadError
	return errors.As(err, &loadErr) && loadErr.Retryable()
}
