package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "resource not found"},
			want: "resource not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to process",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to process: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should reach the cause")
	}
	if Wrap(nil, ErrCodeInternal, "nothing") != nil {
		t.Errorf("Wrap(nil) should return nil")
	}
}

func TestConstructorsAndPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
		code ErrorCode
	}{
		{name: "not found", err: NotFound("x"), is: IsNotFound, code: ErrCodeNotFound},
		{name: "conflict", err: Conflict("x"), is: IsConflict, code: ErrCodeConflict},
		{name: "validation", err: Validationf("bad %s", "x"), is: IsValidation, code: ErrCodeValidation},
		{name: "unauthorized", err: Unauthorized("x"), is: IsUnauthorized, code: ErrCodeUnauthorized},
		{name: "forbidden", err: Forbidden("x"), is: IsForbidden, code: ErrCodeForbidden},
		{name: "unsupported", err: Unsupported("x"), is: IsUnsupported, code: ErrCodeUnsupported},
		{name: "internal", err: Internal("x"), is: IsInternal, code: ErrCodeInternal},
		{name: "timeout", err: Wrap(errors.New("slow"), ErrCodeTimeout, "x"), is: IsTimeout, code: ErrCodeTimeout},
		{name: "canceled", err: Wrap(errors.New("stop"), ErrCodeCanceled, "x"), is: IsCanceled, code: ErrCodeCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("service: %w", tt.err)
			if !tt.is(wrapped) {
				t.Errorf("predicate should match through wrapping")
			}
			if got := GetCode(wrapped); got != tt.code {
				t.Errorf("GetCode() = %v, want %v", got, tt.code)
			}
		})
	}

	if IsNotFound(errors.New("plain")) {
		t.Errorf("plain errors must not match")
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("shift", "shift must be 1 or 2")
	if GetField(fmt.Errorf("wrap: %w", err)) != "shift" {
		t.Errorf("GetField() = %q, want shift", GetField(err))
	}
	if GetField(errors.New("plain")) != "" {
		t.Errorf("GetField(plain) should be empty")
	}
}

func TestGetMessage(t *testing.T) {
	if got := GetMessage(Validation("missing location"), "fallback"); got != "missing location" {
		t.Errorf("GetMessage() = %q", got)
	}
	if got := GetMessage(errors.New("raw"), "fallback"); got != "fallback" {
		t.Errorf("GetMessage(plain) = %q, want fallback", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[ErrorCode]int{
		ErrCodeNotFound:     http.StatusNotFound,
		ErrCodeConflict:     http.StatusConflict,
		ErrCodeValidation:   http.StatusBadRequest,
		ErrCodeForeignKey:   http.StatusBadRequest,
		ErrCodeUnauthorized: http.StatusUnauthorized,
		ErrCodeForbidden:    http.StatusForbidden,
		ErrCodeUnsupported:  http.StatusNotImplemented,
		ErrCodeTimeout:      http.StatusGatewayTimeout,
		ErrCodeInternal:     http.StatusInternalServerError,
		"":                  http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := HTTPStatus(code); got != want {
			t.Errorf("HTTPStatus(%q) = %d, want %d", code, got, want)
		}
	}
}
