package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSleep(t *testing.T) {
	t.Run("waits out short durations", func(t *testing.T) {
		start := time.Now()
		assert.NoError(t, Sleep(t.Context(), 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("zero returns immediately", func(t *testing.T) {
		assert.NoError(t, Sleep(t.Context(), 0))
	})

	t.Run("cancelled context wins", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
		assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
	})
}
