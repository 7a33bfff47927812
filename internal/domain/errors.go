package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrorInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrorRateLimited   ErrorCode = "RATE_LIMITED"
	ErrorUpstream      ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal      ErrorCode = "INTERNAL_ERROR"
)

// Error is the pipeline's error taxonomy. Reason is a stable snake_case tag
// suitable for logs and API responses; Err carries the underlying cause.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("%s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

func ConfigurationError(reason string, err error) *Error {
	return NewError(ErrorConfiguration, reason, err)
}

func UpstreamError(reason string, err error) *Error {
	return NewError(ErrorUpstream, reason, err)
}

func RateLimitError(reason string, err error) *Error {
	return NewError(ErrorRateLimited, reason, err)
}

// CodeOf returns the code of the first *Error in err's chain, or
// ErrorInternal when there is none.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrorInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
