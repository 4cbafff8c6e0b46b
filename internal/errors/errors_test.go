package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrHardware,
		ErrNetwork,
		ErrTime,
		ErrNoData,
		ErrSocket,
		ErrQuery,
		ErrSecrets,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		expectedParts []string
		notExpected   []string
	}{
		{
			name:          "message and suggestion",
			err:           New(ErrConfig, "metrics.json is missing 'query'", "Add a query to every entry"),
			expectedParts: []string{"✗", "metrics.json is missing 'query'", "Add a query to every entry"},
		},
		{
			name:          "cause is included",
			err:           WrapWithCode(errors.New("connection reset by peer"), ErrSocket, "Query failed", ""),
			expectedParts: []string{"Query failed", "connection reset by peer"},
		},
		{
			name:          "no suggestion",
			err:           New(ErrNoData, "No data points", ""),
			expectedParts: []string{"No data points"},
			notExpected:   []string{"\n\n  \n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := tt.err.Error()
			for _, part := range tt.expectedParts {
				assert.Contains(t, output, part)
			}
			for _, part := range tt.notExpected {
				assert.NotContains(t, output, part)
			}
		})
	}
}

func TestWrapDefaultsToQuery(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(cause, "Query failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrQuery, wrapped.Code)
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.True(t, errors.Is(wrapped, cause))
}

func TestIsCode(t *testing.T) {
	inner := New(ErrSocket, "socket", "")
	outer := fmt.Errorf("poll cpu: %w", inner)

	assert.True(t, IsCode(outer, ErrSocket))
	assert.False(t, IsCode(outer, ErrQuery))
	assert.False(t, IsCode(nil, ErrSocket))
	assert.False(t, IsCode(errors.New("plain"), ErrSocket))
	assert.Equal(t, ErrSocket, CodeOf(outer))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestRestart(t *testing.T) {
	cause := New(ErrTime, "Clock is before 2021-04-24", "")
	restart := NewRestart(cause, "TimeERR", 10*time.Second)

	wrapped := fmt.Errorf("boot: %w", restart)

	got, ok := AsRestart(wrapped)
	require.True(t, ok)
	assert.Equal(t, "TimeERR", got.Label)
	assert.Equal(t, 10*time.Second, got.Delay)
	assert.Equal(t, "time", got.Reason())
	assert.True(t, IsCode(wrapped, ErrTime))
	assert.Contains(t, got.Error(), "restart requested")

	_, ok = AsRestart(cause)
	assert.False(t, ok)
}

func TestRestartWithoutCause(t *testing.T) {
	r := NewRestart(nil, "", 0)
	assert.Equal(t, "restart requested", r.Error())
	assert.Equal(t, "unknown", r.Reason())
}
