// Package pacing bounds the request rate against the remote API with a
// fixed, non-adaptive limiter.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a fixed minimum interval between consecutive operations.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a Pacer that allows one operation per interval.
// A non-positive interval disables pacing.
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next operation is allowed or the context ends.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
