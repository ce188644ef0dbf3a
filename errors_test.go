package apischema

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

func TestErrorf(t *testing.T) {
	err := Errorf(CodeInvalidArgument, "invalid field: %s", "email")
	if err.Code != CodeInvalidArgument {
		t.Errorf("expected code %s, got %s", CodeInvalidArgument, err.Code)
	}
	if err.Error() != "invalid_argument: invalid field: email" {
		t.Errorf("unexpected error string %q", err.Error())
	}
}

func TestWithDetailCopies(t *testing.T) {
	base := NewError(CodeNotFound, "missing")
	withID := base.WithDetail("id", 7)
	if base.Details != nil {
		t.Error("WithDetail modified the receiver")
	}
	if withID.Details["id"] != 7 {
		t.Errorf("expected detail id=7, got %v", withID.Details)
	}
}

func TestDefaultErrorTransformer(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		wantCode ErrorCode
		wantMsg  string
	}{
		{
			name:     "service error passthrough",
			input:    fmt.Errorf("wrapped: %w", NewError(CodeNotFound, "not found")),
			wantCode: CodeNotFound,
			wantMsg:  "not found",
		},
		{
			name:     "context deadline exceeded",
			input:    context.DeadlineExceeded,
			wantCode: CodeDeadlineExceeded,
			wantMsg:  "request timeout",
		},
		{
			name:     "context canceled",
			input:    context.Canceled,
			wantCode: CodeCanceled,
			wantMsg:  "context canceled",
		},
		{
			name:     "body too large",
			input:    &http.MaxBytesError{Limit: 10},
			wantCode: CodeResourceExhausted,
			wantMsg:  "request body exceeds 10 bytes",
		},
		{
			name:     "query decode",
			input:    schema.MultiError{"limit": errors.New("not a number")},
			wantCode: CodeInvalidArgument,
			wantMsg:  "not a number",
		},
		{
			name:     "generic error",
			input:    errors.New("something failed"),
			wantCode: CodeInternal,
			wantMsg:  "something failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultErrorTransformer(tt.input)
			if got.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, got.Code)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, got.Message)
			}
		})
	}
	if DefaultErrorTransformer(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestDefaultErrorTransformer_Validation(t *testing.T) {
	type req struct {
		Email string `validate:"required,email"`
		Name  string `validate:"min=3"`
	}
	err := validator.New().Struct(req{Email: "nope", Name: "x"})
	got := DefaultErrorTransformer(err)
	if got.Code != CodeInvalidArgument {
		t.Fatalf("expected invalid_argument, got %s", got.Code)
	}
	if got.Details["Email"] != "must be a valid email address" {
		t.Errorf("unexpected Email detail %v", got.Details["Email"])
	}
	if got.Details["Name"] != "must be at least 3" {
		t.Errorf("unexpected Name detail %v", got.Details["Name"])
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[ErrorCode]int{
		CodeInvalidArgument:   http.StatusBadRequest,
		CodeUnauthenticated:   http.StatusUnauthorized,
		CodePermissionDenied:  http.StatusForbidden,
		CodeNotFound:          http.StatusNotFound,
		CodeMethodNotAllowed:  http.StatusMethodNotAllowed,
		CodeConflict:          http.StatusConflict,
		CodeResourceExhausted: http.StatusRequestEntityTooLarge,
		CodeCanceled:          499,
		CodeInternal:          http.StatusInternalServerError,
		CodeNotImplemented:    http.StatusNotImplemented,
		CodeUnavailable:       http.StatusServiceUnavailable,
		CodeDeadlineExceeded:  http.StatusGatewayTimeout,
		ErrorCode("bogus"):    http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := code.HTTPStatus(); got != want {
			t.Errorf("%s: expected %d, got %d", code, want, got)
		}
	}
}
