package common

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name            string
		originalError   error
		message         string
		expectedMessage string
	}{
		{
			name:            "wrap simple error",
			originalError:   errors.New("original error"),
			message:         "wrapper message",
			expectedMessage: "wrapper message: original error",
		},
		{
			name:            "empty wrapper message",
			originalError:   errors.New("original error"),
			message:         "",
			expectedMessage: ": original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrappedError := WrapError(tt.originalError, tt.message)
			assert.Error(t, wrappedError)
			assert.Equal(t, tt.expectedMessage, wrappedError.Error())
			assert.ErrorIs(t, wrappedError, tt.originalError)
		})
	}
}

func TestWrapError_NilError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "wrapper message"))
}

func TestNewError(t *testing.T) {
	tests := []struct {
		name            string
		format          string
		args            []interface{}
		expectedMessage string
	}{
		{
			name:            "simple message",
			format:          "simple error message",
			args:            nil,
			expectedMessage: "simple error message",
		},
		{
			name:            "formatted message",
			format:          "error with value: %d",
			args:            []interface{}{42},
			expectedMessage: "error with value: 42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewError(tt.format, tt.args...)
			assert.Error(t, err)
			assert.Equal(t, tt.expectedMessage, err.Error())
		})
	}
}

func TestHTTPError(t *testing.T) {
	err := NewHTTPError(http.StatusNotFound, "https://example.com/missing")

	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "https://example.com/missing")
}

func TestNetworkError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("https://example.com", "request failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "https://example.com")
	assert.Contains(t, err.Error(), "request failed")
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("interval_seconds", "soon", "must be an integer")

	assert.Contains(t, err.Error(), "interval_seconds")
	assert.Contains(t, err.Error(), "must be an integer")
}
