package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeProtocol, "User 42 has no open session")
		assert.Equal(t, "PROTOCOL_VIOLATION: User 42 has no open session", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeStorage, "Storage error", cause)
		assert.Contains(t, err.Error(), "STORAGE_ERROR")
		assert.Contains(t, err.Error(), "Storage error")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "userId", "reason": "missing"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("userId", "not a number") }, ErrCodeInvalidInput},
		{"Storage", func() *AppError { return Storage(errors.New("io")) }, ErrCodeStorage},
		{"Lookup", func() *AppError { return Lookup(1, errors.New("miss")) }, ErrCodeLookup},
		{"NoOpenSession", func() *AppError { return NoOpenSession(1) }, ErrCodeProtocol},
		{"OpenSession", func() *AppError { return OpenSession(1) }, ErrCodeProtocol},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.constructor()
			assert.Equal(t, tt.expectedCode, err.Code)
		})
	}
}

func TestHelpers(t *testing.T) {
	t.Run("IsAppError detects AppError", func(t *testing.T) {
		assert.True(t, IsAppError(NoOpenSession(1)))
		assert.False(t, IsAppError(errors.New("plain")))
	})

	t.Run("IsAppError detects wrapped AppError", func(t *testing.T) {
		err := fmt.Errorf("close session: %w", NoOpenSession(1))
		assert.True(t, IsAppError(err))
	})

	t.Run("AsAppError extracts AppError", func(t *testing.T) {
		appErr, ok := AsAppError(fmt.Errorf("wrapped: %w", Storage(errors.New("io"))))
		assert.True(t, ok)
		assert.Equal(t, ErrCodeStorage, appErr.Code)
	})

	t.Run("GetCode falls back to internal", func(t *testing.T) {
		assert.Equal(t, ErrCodeProtocol, GetCode(NoOpenSession(1)))
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
	})
}
