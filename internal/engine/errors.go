package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an engine failure.
type ErrorKind string

const (
	// KindInvalidConfiguration is a bad master length, kerf, width or quantity.
	KindInvalidConfiguration ErrorKind = "invalid_configuration"

	// KindOversizedItem is a demanded width that cannot fit on one core.
	KindOversizedItem ErrorKind = "oversized_item"

	// KindSolverUnavailable is a backend that could not be constructed.
	KindSolverUnavailable ErrorKind = "solver_unavailable"

	// KindSolverError is a solve that ended without a proven-optimal integer solution.
	KindSolverError ErrorKind = "solver_error"

	// KindInternalConsistency is a plan that failed the post-solve feasibility check.
	KindInternalConsistency ErrorKind = "internal_consistency"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration, Index: -1}
	ErrOversizedItem        = &Error{Kind: KindOversizedItem, Index: -1}
	ErrSolverUnavailable    = &Error{Kind: KindSolverUnavailable, Index: -1}
	ErrSolverError          = &Error{Kind: KindSolverError, Index: -1}
	ErrInternalConsistency  = &Error{Kind: KindInternalConsistency, Index: -1}
)

// Error is a classified engine failure.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`

	// Index is the demand line the error refers to, or -1.
	Index int `json:"index"`

	Err error `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s (demand line %d)", msg, e.Index+1)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, index int, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Index:   index,
		Err:     err,
	}
}

func invalidf(index int, format string, args ...any) *Error {
	return newError(KindInvalidConfiguration, index, nil, format, args...)
}

func solverErrorf(err error, format string, args ...any) *Error {
	return newError(KindSolverError, -1, err, format, args...)
}

// KindOf returns the kind of an engine error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsInputError reports whether err is caused by the request itself and can be
// fixed by the caller.
func IsInputError(err error) bool {
	switch KindOf(err) {
	case KindInvalidConfiguration, KindOversizedItem:
		return true
	}
	return false
}

// IsInternalError reports whether err signals a defect rather than bad input.
func IsInternalError(err error) bool {
	switch KindOf(err) {
	case KindSolverError, KindInternalConsistency:
		return true
	}
	return false
}
