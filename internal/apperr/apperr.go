// Package apperr classifies failures surfaced by the study engine.
package apperr

import (
	"errors"
	"fmt"
)

// Kinds. Match with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrStateConflict = errors.New("state conflict")
	ErrStore         = errors.New("store failure")
)

// Error carries a kind, the operation that failed and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

func newf(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return newf(ErrNotFound, op, format, args...)
}

func Validation(op, format string, args ...any) *Error {
	return newf(ErrValidation, op, format, args...)
}

func Conflict(op, format string, args ...any) *Error {
	return newf(ErrStateConflict, op, format, args...)
}

// Store wraps a persistence failure. Errors that are already classified
// pass through unchanged.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: ErrStore, Op: op, Err: err}
}

// KindOf returns the kind of err, or ErrStore for unclassified errors.
func KindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrValidation, ErrStateConflict, ErrStore} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrStore
}
