package pagination

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/retailsync/involves-etl/pkg/client"
	"github.com/retailsync/involves-etl/pkg/logging"
	"github.com/retailsync/involves-etl/pkg/pacing"
	"github.com/retailsync/involves-etl/pkg/request"
)

var pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "involves_pages_fetched_total",
	Help: "Total collection pages fetched",
})

// Fetcher is the single-request dependency of the paginator.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string, opts ...client.FetchOption) client.Result
}

// Config holds paginator configuration.
type Config struct {
	// PageSize is the fixed page size, default 100.
	PageSize int

	// PageInterval is the fixed pause between page requests, default 200ms.
	PageInterval time.Duration
}

// DefaultConfig returns the standard collection paging configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:     100,
		PageInterval: 200 * time.Millisecond,
	}
}

// Paginator accumulates all items of one logical collection endpoint.
type Paginator struct {
	fetcher Fetcher
	config  Config
	pacer   *pacing.Pacer
	logger  zerolog.Logger
}

// New creates a Paginator around the given fetcher.
func New(fetcher Fetcher, cfg Config) *Paginator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.PageInterval < 0 {
		cfg.PageInterval = 0
	}
	return &Paginator{
		fetcher: fetcher,
		config:  cfg,
		pacer:   pacing.New(cfg.PageInterval),
		logger:  logging.NewLogger("pagination"),
	}
}

// envelope is the paged collection body shape. Bare arrays decode through
// decodePage instead.
type envelope struct {
	Items      []json.RawMessage `json:"items"`
	TotalPages int               `json:"totalPages"`
}

// FetchAll fetches successive pages starting at 1 until exhaustion and
// returns the accumulated items in page order then in-page order. A fresh
// call always restarts at page 1; a run that dies mid-collection repeats
// the whole collection next time.
//
// Absent and failed outcomes stop the loop silently: a 404 mid-pagination
// means the collection ended, and a failed page degrades the run to the
// items gathered so far. The only error returned is context cancellation.
func (p *Paginator) FetchAll(ctx context.Context, baseURL string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	totalPages := 0

	for page := 1; ; page++ {
		if page > 1 {
			if err := p.pacer.Wait(ctx); err != nil {
				return all, err
			}
		}

		url := request.WithPage(baseURL, page, p.config.PageSize)
		result := p.fetcher.FetchJSON(ctx, url)
		if !result.OK() {
			break
		}
		pagesFetchedTotal.Inc()

		items, reportedTotal, ok := decodePage(result.Body)
		if !ok {
			p.logger.Warn().Str("url", url).Msg("Unrecognized page body, stopping")
			break
		}
		if len(items) == 0 {
			break
		}

		all = append(all, items...)
		p.logger.Info().
			Int("page", page).
			Int("accumulated", len(all)).
			Msg("Page processed")

		if page == 1 && reportedTotal > 0 {
			totalPages = reportedTotal
		}
		if totalPages > 0 && page >= totalPages {
			break
		}
		// A short page is the last page; skip the confirming empty fetch.
		if len(items) < p.config.PageSize {
			break
		}
	}

	return all, nil
}

// decodePage extracts the item list from a page body, which is either a
// bare array or an items envelope.
func decodePage(body json.RawMessage) (items []json.RawMessage, totalPages int, ok bool) {
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, 0, false
		}
		return items, 0, true
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, 0, false
	}
	return env.Items, env.TotalPages, true
}
