// Package pagination drives sequential page fetching for Involves
// collection endpoints.
//
// Pages are requested one at a time, in order, with a fixed pause between
// them: the remote API rate-limits aggressively, and summaries are cheap
// compared to the detail fan-out that follows, so there is nothing to win
// by parallelizing here.
//
// A collection body is either a bare JSON array or an envelope of the form
//
//	{"items": [...], "totalPages": 7}
//
// where totalPages is optional. Fetching stops at the first empty or short
// page, at a totalPages bound announced on the first page, or at the first
// absent/failed outcome. Accumulated items keep page order then in-page
// order; deduplication is the caller's concern.
package pagination
