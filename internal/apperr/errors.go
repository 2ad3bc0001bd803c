package apperr

import (
	"errors"
	"fmt"
)

const (
	CodeValidation   = "validation"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeSchema       = "schema"
	CodeDependency   = "dependency"
	CodeRateLimited  = "rate_limited"
	CodeTimeout      = "timeout"
	CodeInternal     = "internal"
)

// Error is the service-wide error shape. Code is stable and machine-readable;
// Message is safe to return to callers (never a raw dependency error string).
type Error struct {
	Code      string
	Message   string
	Transient bool
	Status    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func statusForCode(code string) int {
	switch code {
	case CodeValidation, CodeSchema:
		return 400
	case CodeUnauthorized:
		return 401
	case CodeNotFound:
		return 404
	case CodeRateLimited:
		return 429
	case CodeTimeout:
		return 408
	case CodeDependency:
		return 502
	default:
		return 500
	}
}

func newError(code, message string, transient bool) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Transient: transient,
		Status:    statusForCode(code),
	}
}

func Validation(format string, args ...any) *Error {
	return newError(CodeValidation, fmt.Sprintf(format, args...), false)
}

func Unauthorized(message string) *Error {
	return newError(CodeUnauthorized, message, false)
}

// NotFound covers both genuinely absent entities and entities owned by
// another tenant; the two are indistinguishable to the caller.
func NotFound(entity string, args ...any) *Error {
	return newError(CodeNotFound, fmt.Sprintf(entity, args...)+" not found", false)
}

// Schema marks an external-service response that failed strict validation.
// Distinct from Dependency so callers can tell "the model returned garbage"
// from "the network call failed".
func Schema(format string, args ...any) *Error {
	return newError(CodeSchema, fmt.Sprintf(format, args...), false)
}

func Dependency(format string, args ...any) *Error {
	return newError(CodeDependency, fmt.Sprintf(format, args...), true)
}

func Timeout(format string, args ...any) *Error {
	return newError(CodeTimeout, fmt.Sprintf(format, args...), true)
}

func Internal(format string, args ...any) *Error {
	return newError(CodeInternal, fmt.Sprintf(format, args...), true)
}

// From returns err as an *Error, wrapping unknown errors as a generic
// internal error so dependency detail never leaks to the client.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal("internal error")
}

func CodeOf(err error) string {
	return From(err).Code
}
