package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(ErrTypeDatabase, "connection failed"),
			expected: "database: connection failed",
		},
		{
			name:     "error with cause",
			err:      Wrap(errors.New("dial tcp: refused"), ErrTypeNetwork, "store unreachable"),
			expected: "network: store unreachable (caused by: dial tcp: refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, ErrTypeLLM, "completion failed")

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestIsType(t *testing.T) {
	err := New(ErrTypeParse, "no JSON object found")

	assert.True(t, IsType(err, ErrTypeParse))
	assert.False(t, IsType(err, ErrTypeDatabase))
	assert.False(t, IsType(errors.New("plain"), ErrTypeParse))
}

func TestGetType(t *testing.T) {
	assert.Equal(t, ErrTypeValidation, GetType(New(ErrTypeValidation, "bad input")))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))

	wrapped := Wrapf(New(ErrTypeLLM, "inner"), ErrTypeDatabase, "outer %s", "context")
	assert.Equal(t, ErrTypeDatabase, GetType(wrapped))
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrTypeConfig, "missing API key").
		WithSuggestion("Set CHARTQUERY_LLM_API_KEY")

	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0], "CHARTQUERY_LLM_API_KEY")
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("invalid value", "llm.provider")

	assert.Equal(t, ErrTypeConfig, err.Type)
	assert.Contains(t, err.Message, "llm.provider")
	assert.Len(t, err.Suggestions, 2)
}
