package respcache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore memoizes outcomes in process memory for the lifetime of one
// run. Entries never expire and are never evicted; a run performs each
// distinct GET at most once by construction, so the store only grows with
// the number of distinct URLs.
type MemoryStore struct {
	entries *gocache.Cache
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the memoized entry for the URL, or ErrMiss.
func (s *MemoryStore) Get(_ context.Context, url string) (*Entry, error) {
	value, found := s.entries.Get(url)
	if !found {
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrMiss
	}

	entry, ok := value.(*Entry)
	if !ok {
		CacheErrors.WithLabelValues("memory", "get").Inc()
		return nil, ErrInvalidEntry
	}

	CacheHits.WithLabelValues("memory").Inc()
	return entry, nil
}

// Set memoizes an entry for the URL.
func (s *MemoryStore) Set(_ context.Context, url string, entry *Entry) error {
	s.entries.Set(url, entry, gocache.NoExpiration)
	return nil
}

// Len returns the number of memoized URLs.
func (s *MemoryStore) Len() int {
	return s.entries.ItemCount()
}
