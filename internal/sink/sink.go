// Package sink defines the external persistence collaborators of the
// extractor: a writer that loads flat tabular records and a reader that
// exposes previously persisted identifiers for incremental loads.
package sink

import (
	"context"

	"github.com/retailsync/involves-etl/pkg/delta"
)

// Mode selects how a load treats existing data.
type Mode string

const (
	// ModeReplace overwrites the destination completely.
	ModeReplace Mode = "replace"

	// ModeAppend appends with dedup by the first column: rows whose key
	// already exists are overwritten (last write wins).
	ModeAppend Mode = "append"
)

// Row is one flat record. Values are scalars (string, bool, numbers) or
// nil; nested structures must be flattened or serialized by the caller.
type Row map[string]any

// Table is a uniform batch of rows bound for one destination.
// Columns fixes the column order; the first column is the dedup key.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Key returns the dedup key column.
func (t Table) Key() string {
	if len(t.Columns) == 0 {
		return ""
	}
	return t.Columns[0]
}

// Writer loads tables into a destination.
type Writer interface {
	Write(ctx context.Context, table Table, mode Mode) error
}

// Reader exposes persisted state for incremental loads. A destination
// that does not exist yet yields an empty set, not an error: the first
// run of a fresh environment bootstraps from nothing.
type Reader interface {
	DistinctColumn(ctx context.Context, name, column string) (delta.Set, error)
}
