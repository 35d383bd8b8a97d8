package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/lucagalbu/task-manager/domain"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{name: "domain", err: domain.ErrTaskNotFound, code: "NOT_FOUND"},
		{name: "wrapped", err: fmt.Errorf("get: %w", domain.ErrInvalidDate), code: "INVALID"},
		{name: "driver", err: errors.New("connection reset"), code: "INTERNAL"},
		{name: "nil", err: nil, code: "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := FromError(tt.err)
			if env.Status != OutcomeError || env.Code != tt.code || env.Error == "" {
				t.Errorf("Unexpected envelope %+v", env)
			}
		})
	}
}

func TestEnvelopeJSON(t *testing.T) {
	out, err := json.Marshal(NewSuccess([]int{}, nil))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"status":"success","data":[]}` {
		t.Errorf("Unexpected success body %s", out)
	}

	out, err = json.Marshal(NewError("DEGRADED", "task store unreachable", nil))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"status":"error","code":"DEGRADED","error":"task store unreachable"}` {
		t.Errorf("Unexpected error body %s", out)
	}
}
