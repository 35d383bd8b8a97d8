package transport

import (
	"errors"

	"github.com/lucagalbu/task-manager/domain"
)

// Outcome is the top-level status of an envelope.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Envelope is the standard API response wrapper used for both success and error payloads.
type Envelope struct {
	Status Outcome     `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

// NewSuccess returns a success envelope.
func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: OutcomeSuccess,
		Data:   data,
		Meta:   meta,
	}
}

// NewError returns an error envelope with an explicit code.
func NewError(code string, message string, meta interface{}) Envelope {
	return Envelope{
		Status: OutcomeError,
		Code:   code,
		Error:  message,
		Meta:   meta,
	}
}

// FromError builds an error envelope whose code is the domain classification of err.
func FromError(err error) Envelope {
	if err == nil {
		return NewError(string(domain.ErrCodeInternal), "unknown error", nil)
	}
	return NewError(ErrorCode(err), err.Error(), nil)
}

// ErrorCode returns the domain code carried by err, or INTERNAL.
func ErrorCode(err error) string {
	var dErr *domain.Error
	if errors.As(err, &dErr) && dErr.Code != "" {
		return string(dErr.Code)
	}
	return string(domain.ErrCodeInternal)
}
