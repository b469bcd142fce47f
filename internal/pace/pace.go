// Package pace picks and waits out randomized delays between requests.
package pace

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer waits a uniformly random duration in [Min, Max].
// The zero value never waits.
type Pacer struct {
	Min time.Duration
	Max time.Duration

	// Int64N and Sleep are swapped out in tests.
	Int64N func(n int64) int64
	Sleep  func(ctx context.Context, d time.Duration) error
}

func New(lo, hi time.Duration) Pacer {
	return Pacer{Min: lo, Max: hi}
}

// Next returns the next delay without waiting.
func (p Pacer) Next() time.Duration {
	if p.Max <= p.Min {
		return max(p.Min, 0)
	}
	n := p.Int64N
	if n == nil {
		n = rand.Int64N
	}
	return p.Min + time.Duration(n(int64(p.Max-p.Min)+1))
}

// Wait blocks for Next() or until ctx is done.
func (p Pacer) Wait(ctx context.Context) (time.Duration, error) {
	d := p.Next()
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	return d, sleep(ctx, d)
}

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
