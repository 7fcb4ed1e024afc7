// Package sleeper holds the injectable clock every polling loop waits on, so
// tests can run hours of retries without real delay.
package sleeper

import (
	"context"
	"time"

	"github.com/mixer/clock"
)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Default is the wall clock.
func Default() Clock {
	return clock.DefaultClock{}
}

// Sleep waits for d on clk. It returns early with ctx.Err() only when the
// process is shutting down.
func Sleep(ctx context.Context, clk Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clk.After(d):
		// a shutdown that lands during the wait still wins
		return ctx.Err()
	}
}
