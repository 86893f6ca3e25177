// Package respcache memoizes classified fetch outcomes by request URL so a
// run never repeats an identical GET. The store is an explicit object with
// an injectable lifetime: the caller creates one per run and discards it.
package respcache

import (
	"encoding/json"
	"time"
)

// Outcome labels stored alongside the cached body. Failed outcomes are
// never cached, so only these three appear in a store.
const (
	OutcomeSuccess  = "success"
	OutcomeEmpty    = "empty"
	OutcomeNotFound = "not_found"
)

// Entry is a memoized fetch outcome for one URL.
type Entry struct {
	// Outcome is the classification of the original fetch.
	Outcome string `json:"outcome"`

	// StatusCode is the HTTP status of the original response.
	StatusCode int `json:"status_code"`

	// Body is the decoded-and-validated response payload.
	// Empty for OutcomeEmpty and OutcomeNotFound entries.
	Body json.RawMessage `json:"body,omitempty"`

	// StoredAt is when the entry was memoized.
	StoredAt time.Time `json:"stored_at"`
}

// HasBody reports whether the entry carries a payload.
func (e *Entry) HasBody() bool {
	return len(e.Body) > 0
}
