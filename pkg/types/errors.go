package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies the class of a celfx error.
type ErrorCode string

// Error codes.
const (
	// C0xxx: expression compilation
	ErrCodeCompile ErrorCode = "C0101"

	// E0xxx: evaluation
	ErrCodeEvaluation ErrorCode = "E0201"

	// A/T0xxx: native-call contract
	ErrCodeArityMismatch ErrorCode = "A0301"
	ErrCodeTypeMismatch  ErrorCode = "T0302"

	// U0xxx: registry lookups
	ErrCodeUnknownFunction ErrorCode = "U0401"
	ErrCodeUnknownCategory ErrorCode = "U0402"

	// R0xxx: resource ceilings
	ErrCodeRecursionLimit ErrorCode = "R0501"

	// G0xxx: configuration
	ErrCodeConfig ErrorCode = "G0601"
)

// Sentinel errors usable with errors.Is. Every *Error matches the sentinel
// of its code.
var (
	ErrCompile         = errors.New("compile error")
	ErrEvaluation      = errors.New("evaluation error")
	ErrArityMismatch   = errors.New("arity mismatch")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrUnknownFunction = errors.New("unknown function")
	ErrUnknownCategory = errors.New("unknown category")
	ErrRecursionLimit  = errors.New("recursion limit exceeded")
	ErrConfig          = errors.New("invalid configuration")
)

var sentinels = map[ErrorCode]error{
	ErrCodeCompile:         ErrCompile,
	ErrCodeEvaluation:      ErrEvaluation,
	ErrCodeArityMismatch:   ErrArityMismatch,
	ErrCodeTypeMismatch:    ErrTypeMismatch,
	ErrCodeUnknownFunction: ErrUnknownFunction,
	ErrCodeUnknownCategory: ErrUnknownCategory,
	ErrCodeRecursionLimit:  ErrRecursionLimit,
	ErrCodeConfig:          ErrConfig,
}

// Error is the structured error returned by every celfx package.
type Error struct {
	Code     ErrorCode
	Message  string
	Function string
	// Position is the 1-based argument position for contract errors, or the
	// source offset for compile errors. Zero means unknown.
	Position int
	Expected string
	Actual   string
	Err      error
}

// NewError creates a new error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Function != "" {
		b.WriteString(" in ")
		b.WriteString(e.Function)
	}
	if e.Position > 0 {
		fmt.Fprintf(&b, " at position %d", e.Position)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's code.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// WithFunction sets the function name the error refers to.
func (e *Error) WithFunction(name string) *Error {
	e.Function = name
	return e
}

// WithPosition sets the argument position or source offset.
func (e *Error) WithPosition(pos int) *Error {
	e.Position = pos
	return e
}

// WithTypes records the expected and actual types or counts.
func (e *Error) WithTypes(expected, actual string) *Error {
	e.Expected = expected
	e.Actual = actual
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// AsError returns err as *Error when it is one (or wraps one).
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// UnknownFunction builds the error returned for a name missing from a
// registry or from an evaluator.
func UnknownFunction(name string) *Error {
	return Errorf(ErrCodeUnknownFunction, "unknown function %q", name).WithFunction(name)
}
