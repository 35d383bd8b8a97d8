package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeInvalid       ErrorCode = "INVALID"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeConnection    ErrorCode = "CONNECTION"
	ErrCodeBootstrap     ErrorCode = "BOOTSTRAP"
	ErrCodeWrite         ErrorCode = "WRITE"
	ErrCodeDataIntegrity ErrorCode = "DATA_INTEGRITY"
	ErrCodeInternal      ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by code and message, so wrapped sentinels compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrTaskNotFound   = NewError(ErrCodeNotFound, "task not found")
	ErrInvalidPayload = NewError(ErrCodeInvalid, "invalid payload")
	ErrTitleRequired  = NewError(ErrCodeInvalid, "title is required")
	ErrInvalidStatus  = NewError(ErrCodeInvalid, "invalid status")
	ErrInvalidDate    = NewError(ErrCodeInvalid, "invalid date")
	ErrValueTooLong   = NewError(ErrCodeInvalid, "value too long")
	ErrUnknownStatus  = NewError(ErrCodeDataIntegrity, "unknown stored status")
	ErrDuplicateID    = NewError(ErrCodeDataIntegrity, "multiple tasks share the same id")
	ErrNoGeneratedID  = NewError(ErrCodeWrite, "no id generated for inserted task")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
