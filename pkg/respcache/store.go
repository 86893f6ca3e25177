package respcache

import (
	"context"
	"errors"
)

var (
	// ErrMiss indicates the requested URL has no memoized outcome.
	ErrMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store memoizes fetch outcomes keyed by exact request URL.
//
// Implementations must support concurrent use: fan-out workers share one
// store with the coordinating goroutine. Distinct URLs never contend, and
// no two workers fetch the same URL concurrently, so a Store only needs
// safe concurrent map access, not request coalescing.
type Store interface {
	// Get returns the memoized entry for the URL, or ErrMiss.
	Get(ctx context.Context, url string) (*Entry, error)

	// Set memoizes an entry for the URL.
	Set(ctx context.Context, url string, entry *Entry) error
}
