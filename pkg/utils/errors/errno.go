// Package errors provides the structured error system for Guardian.
//
// Errors carry a globally unique numeric code, an HTTP status, a gRPC
// status code, and a human-readable message safe to return to callers.
//
// Error Code Format: AABBCCC (7 digits)
//
//	AA  (00-99): Service/Module code - identifies the source module
//	BB  (00-99): Category code - identifies the error category
//	CCC (000-999): Sequence number - specific error within the category
//
// Usage:
//
//	// Using predefined errors
//	return errors.ErrInvalidParam.WithMessage("subject is required")
//
//	// Wrapping underlying errors
//	return errors.ErrDatabase.WithCause(err)
package errors

import (
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Errno represents a structured error with code and message.
type Errno struct {
	// Code is the unique error code.
	Code int `json:"code"`

	// HTTP is the HTTP status code to return.
	HTTP int `json:"-"`

	// GRPCCode is the gRPC status code.
	GRPCCode codes.Code `json:"-"`

	// Message is the caller-facing error message.
	Message string `json:"message"`

	// cause is the underlying error.
	cause error
}

// New creates a new Errno.
func New(code, httpStatus int, grpcCode codes.Code, message string) *Errno {
	return &Errno{
		Code:     code,
		HTTP:     httpStatus,
		GRPCCode: grpcCode,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *Errno) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("errno %d: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("errno %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Errno) Unwrap() error {
	return e.cause
}

// Is reports whether target is an Errno with the same code.
// This lets errors.Is match derived errors produced by WithMessage/WithCause.
func (e *Errno) Is(target error) bool {
	t, ok := target.(*Errno)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause attached.
func (e *Errno) WithCause(cause error) *Errno {
	clone := *e
	clone.cause = cause
	return &clone
}

// WithMessage returns a copy of the error with the message replaced.
func (e *Errno) WithMessage(msg string) *Errno {
	clone := *e
	clone.Message = msg
	return &clone
}

// WithMessagef returns a copy of the error with a formatted message.
func (e *Errno) WithMessagef(format string, args ...interface{}) *Errno {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// HTTPStatus returns the HTTP status code, defaulting to 500.
func (e *Errno) HTTPStatus() int {
	if e.HTTP == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTP
}

// GRPCStatus returns the gRPC status code.
func (e *Errno) GRPCStatus() codes.Code {
	return e.GRPCCode
}

// MakeCode builds an error code from service, category and sequence parts.
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}
