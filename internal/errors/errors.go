// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package errors wraps errors with stack traces so fatal load failures can be
// traced back to the code path that produced them.
package errors

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// WithStackTrace wraps the given error in an Error type that contains the stack trace.
// If the given error already has a stack trace, it is used directly. A nil error stays nil.
func WithStackTrace(err error) error {
	if err == nil {
		return nil
	}
	if HasStackTrace(err) {
		return err
	}
	return goerrors.Wrap(err, 1)
}

// WithStackTraceAndPrefix is WithStackTrace with a formatted message prepended.
func WithStackTraceAndPrefix(err error, message string, args ...any) error {
	if err == nil {
		return nil
	}
	return goerrors.WrapPrefix(err, fmt.Sprintf(message, args...), 1)
}

// HasStackTrace reports whether any error in err's chain already carries a stack trace.
func HasStackTrace(err error) bool {
	var goerr *goerrors.Error
	return errors.As(err, &goerr)
}

// ErrorWithStackTrace returns a string that contains both the error message and the callstack.
func ErrorWithStackTrace(err error) string {
	if err == nil {
		return ""
	}
	return goError(err).ErrorStack()
}

// goError returns the innermost stack-carrying error of the chain, or a fresh
// wrapper without frames when nothing in the chain has one.
func goError(err error) *goerrors.Error {
	goerr := &goerrors.Error{Err: err}
	for {
		if candidate := new(goerrors.Error); errors.As(err, &candidate) {
			goerr = candidate
		}
		if err = errors.Unwrap(err); err == nil {
			break
		}
	}
	return goerr
}

// Recover tries to recover from panics, and if it succeeds, calls the given onPanic function with an error that
// explains the cause of the panic. This function should only be called from a defer statement.
func Recover(onPanic func(cause error)) {
	if rec := recover(); rec != nil {
		err, isError := rec.(error)
		if !isError {
			err = fmt.Errorf("%v", rec)
		}
		onPanic(WithStackTrace(err))
	}
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
