// Package fanout dispatches bounded-concurrency detail lookups for large
// identifier sets.
package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/retailsync/involves-etl/pkg/client"
	"github.com/retailsync/involves-etl/pkg/delta"
	"github.com/retailsync/involves-etl/pkg/logging"
	"github.com/retailsync/involves-etl/pkg/request"
)

// Prometheus metrics for fan-out operations.
var (
	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "involves_fanout_inflight",
		Help: "Detail lookups currently in flight",
	})

	processedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "involves_fanout_processed_total",
		Help: "Per-identifier detail lookups by result",
	}, []string{"result"}) // "kept", "dropped"
)

// Fetcher is the single-request dependency of the pool.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string, opts ...client.FetchOption) client.Result
}

// Config holds pool configuration.
type Config struct {
	// Workers bounds concurrent lookups, default 5. The bound exists to
	// avoid hammering the remote API with identifier-scoped bursts that
	// can reach thousands of requests for large entity sets.
	Workers int

	// ProgressEvery controls how often cumulative progress is logged at
	// info level, default every 50 identifiers.
	ProgressEvery int
}

// DefaultConfig returns the standard fan-out configuration.
func DefaultConfig() Config {
	return Config{
		Workers:       5,
		ProgressEvery: 50,
	}
}

// Pool is a reusable bounded-concurrency detail fetcher.
type Pool struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
}

// New creates a Pool around the given fetcher.
func New(fetcher Fetcher, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 50
	}
	return &Pool{
		fetcher: fetcher,
		config:  cfg,
		logger:  logging.NewLogger("fanout"),
	}
}

// Options adjusts one FetchDetails call.
type Options struct {
	// AttachIDField, when set, injects the originating identifier into
	// each result object under this field name. Needed when the detail
	// payload does not echo back the identifier used to fetch it.
	AttachIDField string

	// QuietNotFound suppresses 404 diagnostics for identifiers that probe
	// optional sub-resources.
	QuietNotFound bool
}

// FetchDetails substitutes each identifier into urlTemplate and fetches
// the details with bounded concurrency. Results are collected in
// completion order, which is non-deterministic; callers needing a stable
// order must sort afterwards. Non-success outcomes are dropped from the
// result and logged per identifier; one failure never aborts the rest.
// An empty identifier set returns nil without any network activity.
func (p *Pool) FetchDetails(ctx context.Context, urlTemplate string, ids delta.Set, opts Options) []json.RawMessage {
	total := ids.Len()
	if total == 0 {
		return nil
	}

	queue := make(chan string, total)
	for _, id := range ids.Values() {
		queue <- id
	}
	close(queue)

	results := make(chan json.RawMessage, total)
	var processed atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < p.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, urlTemplate, queue, results, opts, &processed, total)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	details := make([]json.RawMessage, 0, total)
	for body := range results {
		details = append(details, body)
	}

	p.logger.Info().
		Int("total", total).
		Int("kept", len(details)).
		Msg("Fan-out complete")

	return details
}

// worker drains identifiers from the queue until it is empty or the
// context ends.
func (p *Pool) worker(ctx context.Context, urlTemplate string, queue <-chan string, results chan<- json.RawMessage, opts Options, processed *atomic.Int64, total int) {
	for id := range queue {
		select {
		case <-ctx.Done():
			return
		default:
		}

		inFlight.Inc()
		body, kept := p.fetchOne(ctx, urlTemplate, id, opts)
		inFlight.Dec()

		done := processed.Add(1)
		if kept {
			processedTotal.WithLabelValues("kept").Inc()
			results <- body
		} else {
			processedTotal.WithLabelValues("dropped").Inc()
		}

		if int(done)%p.config.ProgressEvery == 0 || int(done) == total {
			p.logger.Info().
				Int64("processed", done).
				Int("total", total).
				Msg("Fan-out progress")
		}
	}
}

// fetchOne fetches a single identifier's details and reports whether the
// result should be kept.
func (p *Pool) fetchOne(ctx context.Context, urlTemplate, id string, opts Options) (json.RawMessage, bool) {
	url := request.Expand(urlTemplate, id)

	var fetchOpts []client.FetchOption
	if opts.QuietNotFound {
		fetchOpts = append(fetchOpts, client.QuietNotFound())
	}

	result := p.fetcher.FetchJSON(ctx, url, fetchOpts...)
	if !result.OK() {
		event := p.logger.Warn()
		if result.Absent() {
			event = p.logger.Debug()
		}
		event.
			Str("id", id).
			Str("outcome", string(result.Outcome)).
			Msg("Detail lookup dropped")
		return nil, false
	}

	body := result.Body
	if opts.AttachIDField != "" {
		body = attachID(body, opts.AttachIDField, id, p.logger)
	}
	return body, true
}

// attachID injects the originating identifier into a JSON object body.
// Non-object bodies are returned unchanged.
func attachID(body json.RawMessage, field, id string, logger zerolog.Logger) json.RawMessage {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		logger.Warn().Str("id", id).Msg("Cannot attach identifier to non-object payload")
		return body
	}
	obj[field] = id

	attached, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return attached
}
