package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "involves_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "involves_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// backoffDelay returns the pause before retry k (1-indexed): k backoff
// units, growing linearly.
func backoffDelay(retry int, unit time.Duration) time.Duration {
	return time.Duration(retry) * unit
}

// retryWithBackoff runs one attempt per iteration until fn reports a
// definitive outcome or the attempt ceiling is reached. fn returns the
// attempt's result, the failure class, and whether the failure is
// transient and worth another attempt.
func retryWithBackoff(ctx context.Context, maxAttempts int, unit time.Duration, logger zerolog.Logger, fn func() (Result, ErrorClass, bool)) Result {
	var last Result
	var lastClass ErrorClass

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, class, transient := fn()
		if !transient {
			if attempt > 1 && result.Outcome != OutcomeFailed {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return result
		}

		last = result
		lastClass = class

		if attempt >= maxAttempts {
			break
		}

		retriesTotal.WithLabelValues(string(class)).Inc()
		delay := backoffDelay(attempt, unit)

		logger.Debug().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return Result{
				Outcome: OutcomeFailed,
				Err:     fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err()),
			}
		case <-time.After(delay):
		}
	}

	retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
	logger.Warn().
		Str("error_class", string(lastClass)).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	last.Err = fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, maxAttempts, last.Err)
	return last
}
