// Package errors carries the structured error type shared by every layer of
// Serial-Intelligence. An AppError pairs an ErrorCode with a client-safe
// message; the code decides the HTTP status, the log level and whether the
// message may reach the caller.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const stackDepth = 32

// AppError is the error type returned across package boundaries. It
// participates in errors.Is / errors.As through Unwrap.
//
//	return errors.New(errors.ErrCodePatternNotFound, "pattern 42 not found")
//	return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list patterns")
//	return errors.Validation("step must be positive").WithDetail("step=-1")
type AppError struct {
	Code ErrorCode
	// Message is safe to return to API clients for 4xx codes.
	Message string
	// Detail carries the offending input or ids.
	Detail string
	Cause  error
	// Stack is captured at construction and never rendered by Error().
	Stack string
}

// Error renders "[<code>] <message>[: <detail>]".
func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(e.Code.String())
	sb.WriteString("] ")
	sb.WriteString(e.Message)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithDetail returns a copy with Detail set. Nil-safe.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	c.Detail = detail
	return &c
}

// WithCause returns a copy with Cause set. Nil-safe.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	c.Cause = err
	return &c
}

// HTTPStatus returns the status bound to the error's code.
func (e *AppError) HTTPStatus() int { return HTTPStatusForCode(e.Code) }

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// build is the single constructor; skip counts the exported frames above it
// so the stack starts at the caller.
func build(skip int, code ErrorCode, msg string, cause error) *AppError {
	return &AppError{Code: code, Message: msg, Cause: cause, Stack: stack(skip + 1)}
}

func stack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for n > 0 {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

func New(code ErrorCode, message string) *AppError {
	return build(1, code, message, nil)
}

func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return build(1, code, fmt.Sprintf(format, args...), nil)
}

// Wrap attaches code and message to err. A nil err yields nil so Wrap can be
// used inline on return paths. CodeUnknown keeps the code of an AppError
// already in err's chain.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return build(1, inherit(err, code), message, err)
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	if err == nil {
		return nil
	}
	return build(1, inherit(err, code), fmt.Sprintf(format, args...), err)
}

func inherit(err error, code ErrorCode) ErrorCode {
	if code != CodeUnknown {
		return code
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return code
}

// NotFound builds a generic not-found error.
func NotFound(message string) *AppError {
	return build(1, ErrCodeNotFound, message, nil)
}

// InvalidParam builds a bad-request error for a malformed parameter.
func InvalidParam(message string) *AppError {
	return build(1, ErrCodeBadRequest, message, nil)
}

// Validation builds an ErrCodeSerialValidation error for a malformed
// extraction or generation request.
func Validation(message string) *AppError {
	return build(1, ErrCodeSerialValidation, message, nil)
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// codesInChain calls fn for the code of every AppError in err's chain until
// fn returns true.
func codesInChain(err error, fn func(ErrorCode) bool) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if ae, ok := err.(*AppError); ok && fn(ae.Code) {
			return true
		}
	}
	return false
}

// IsCode reports whether any AppError in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	return codesInChain(err, func(c ErrorCode) bool { return c == code })
}

func isClass(err error, cl class) bool {
	return codesInChain(err, func(c ErrorCode) bool { return registry[c].class == cl })
}

// IsNotFound matches generic and pattern not-found codes.
func IsNotFound(err error) bool { return isClass(err, classNotFound) }

// IsValidation matches every code that blames the request: bad request,
// validation, serial validation, capacity exceeded and invalid pattern
// config.
func IsValidation(err error) bool { return isClass(err, classValidation) }

// IsConflict matches generic conflicts and duplicate patterns.
func IsConflict(err error) bool { return isClass(err, classConflict) }

// GetCode returns the code of the outermost AppError, CodeOK for nil and
// CodeUnknown for foreign errors.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

//Personal.AI order the ending
