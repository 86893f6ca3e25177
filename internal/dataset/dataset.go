// Package dataset extracts the Involves entities and flattens their nested
// payloads into sink tables. Table and column names follow the warehouse
// naming the downstream reports were built on, so they stay in Portuguese.
package dataset

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/retailsync/involves-etl/internal/sink"
	"github.com/retailsync/involves-etl/pkg/client"
	"github.com/retailsync/involves-etl/pkg/fanout"
	"github.com/retailsync/involves-etl/pkg/logging"
	"github.com/retailsync/involves-etl/pkg/pagination"
	"github.com/retailsync/involves-etl/pkg/request"
)

// Fetcher is the transport dependency of the extractor.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string, opts ...client.FetchOption) client.Result
}

// Config holds extractor configuration.
type Config struct {
	// BaseURL is the API root, e.g. https://customer.involves.com/webservices/api.
	BaseURL string

	// EnvironmentID scopes every environment-bound endpoint.
	EnvironmentID string

	Pagination pagination.Config
	Fanout     fanout.Config
}

// DefaultConfig returns an extractor configuration with standard paging
// and fan-out settings.
func DefaultConfig(baseURL, environmentID string) Config {
	return Config{
		BaseURL:       baseURL,
		EnvironmentID: environmentID,
		Pagination:    pagination.DefaultConfig(),
		Fanout:        fanout.DefaultConfig(),
	}
}

// Extractor fetches one environment's entities through the shared fetcher.
type Extractor struct {
	pages  *pagination.Paginator
	pool   *fanout.Pool
	base   string
	envID  string
	logger zerolog.Logger
}

// New creates an Extractor around the given fetcher.
func New(fetcher Fetcher, cfg Config) *Extractor {
	return &Extractor{
		pages:  pagination.New(fetcher, cfg.Pagination),
		pool:   fanout.New(fetcher, cfg.Fanout),
		base:   cfg.BaseURL,
		envID:  cfg.EnvironmentID,
		logger: logging.NewLogger("dataset"),
	}
}

// collection fetches every summary of one environment-scoped collection.
func (e *Extractor) collection(ctx context.Context, endpoint string) ([]json.RawMessage, error) {
	url := request.Environment(e.base, e.envID).Path(endpoint).String()
	e.logger.Info().Str("endpoint", endpoint).Msg("Extracting collection")
	return e.pages.FetchAll(ctx, url)
}

// detailTemplate returns a {id} detail URL template in the v3 environment
// scope. The placeholder is appended raw so the builder does not escape it.
func (e *Extractor) detailTemplate(endpoint string) string {
	return request.Environment(e.base, e.envID).Path(endpoint).String() + "/{id}"
}

// decodeAll unmarshals each raw item, skipping the ones that do not fit.
// A handful of malformed items must not sink a whole collection.
func decodeAll[T any](items []json.RawMessage, logger zerolog.Logger, entity string) []T {
	out := make([]T, 0, len(items))
	for _, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			logger.Warn().Err(err).Str("entity", entity).Msg("Skipping undecodable item")
			continue
		}
		out = append(out, v)
	}
	return out
}

// namedItem is the ubiquitous {id, name} dimension payload.
type namedItem struct {
	ID   flexString `json:"id"`
	Name flexString `json:"name"`
}

// ref is a nested entity reference carrying only the identifier.
type ref struct {
	ID flexString `json:"id"`
}

var dimensionColumns = []string{"ID", "NOME"}

// dimensionTable flattens {id, name} items into an ID/NOME table.
// Items without an identifier are dropped.
func dimensionTable(name string, items []namedItem) sink.Table {
	rows := make([]sink.Row, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		rows = append(rows, sink.Row{
			"ID":   item.ID.value(),
			"NOME": item.Name.value(),
		})
	}
	return sink.Table{Name: name, Columns: dimensionColumns, Rows: rows}
}
