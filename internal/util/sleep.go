// Package util provides small helpers shared across the codebase.
package util

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done. Components take one so tests
// can record sleeps instead of waiting them out.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d, returning ctx.Err() if ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
