package client

import (
	"encoding/json"

	"github.com/retailsync/involves-etl/pkg/respcache"
)

// Outcome classifies the result of a fetch. Ordinary HTTP and network
// failure never surfaces as a Go error; it resolves to one of these values.
type Outcome string

const (
	// OutcomeSuccess is a 2xx response carrying a valid JSON body.
	OutcomeSuccess Outcome = "success"

	// OutcomeEmpty is an explicit "no data" signal: a 204 status or a 2xx
	// response with an empty body. Distinct from absence.
	OutcomeEmpty Outcome = "empty"

	// OutcomeNotFound is a 404. Terminal, never retried. Many lookups probe
	// for optional sub-resources, so callers may suppress its diagnostics.
	OutcomeNotFound Outcome = "not_found"

	// OutcomeFailed is a definitive failure: retries exhausted, a malformed
	// body, or an unusable request. Never cached.
	OutcomeFailed Outcome = "failed"
)

// Result is the classified outcome of one fetch.
type Result struct {
	Outcome    Outcome
	StatusCode int

	// Body is the JSON payload for OutcomeSuccess, nil otherwise.
	Body json.RawMessage

	// Err carries the failure reason for OutcomeFailed. It is diagnostic
	// context, not a control-flow signal.
	Err error
}

// OK reports whether the fetch produced a payload.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Absent reports whether the remote definitively has no data for the URL.
func (r Result) Absent() bool {
	return r.Outcome == OutcomeEmpty || r.Outcome == OutcomeNotFound
}

func resultFromEntry(entry *respcache.Entry) Result {
	return Result{
		Outcome:    Outcome(entry.Outcome),
		StatusCode: entry.StatusCode,
		Body:       entry.Body,
	}
}

func (r Result) toEntry() *respcache.Entry {
	return &respcache.Entry{
		Outcome:    string(r.Outcome),
		StatusCode: r.StatusCode,
		Body:       r.Body,
	}
}
