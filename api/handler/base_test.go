package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lucagalbu/task-manager/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid", err: domain.ErrTitleRequired, status: http.StatusBadRequest, code: "INVALID"},
		{name: "too long", err: domain.WrapError(domain.ErrCodeInvalid, domain.ErrValueTooLong.Message, errors.New("title")), status: http.StatusBadRequest, code: "INVALID"},
		{name: "not found", err: fmt.Errorf("remove: %w", domain.ErrTaskNotFound), status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "connection", err: domain.NewError(domain.ErrCodeConnection, "unable to reach redis"), status: http.StatusServiceUnavailable, code: "CONNECTION"},
		{name: "data integrity", err: domain.ErrUnknownStatus, status: http.StatusInternalServerError, code: "DATA_INTEGRITY"},
		{name: "write", err: domain.ErrNoGeneratedID, status: http.StatusInternalServerError, code: "WRITE"},
		{name: "timeout", err: fmt.Errorf("query: %w", context.DeadlineExceeded), status: http.StatusGatewayTimeout, code: "TIMEOUT"},
		{name: "driver", err: errors.New("value too long for type character varying(255)"), status: http.StatusInternalServerError, code: "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := mapError(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("Expected %d %s, got %d %s", tt.status, tt.code, status, code)
			}
		})
	}
}
