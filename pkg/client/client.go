// Package client provides the core Involves API fetch unit: one HTTP GET
// with outcome classification, linear-backoff retry, and response-cache
// memoization.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/retailsync/involves-etl/pkg/logging"
	"github.com/retailsync/involves-etl/pkg/respcache"
)

// Prometheus metrics for fetch operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "involves_requests_total",
		Help: "Total Involves API requests by HTTP status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "involves_request_duration_seconds",
		Help:    "Involves API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "involves_errors_total",
		Help: "Total Involves API errors by class",
	}, []string{"class"})
)

// Client is the Involves API fetch unit.
type Client struct {
	httpClient *http.Client
	cache      respcache.Store
	config     Config
	headers    http.Header
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Basic auth credentials (REQUIRED).
	Username string
	Password string

	// Cache memoizes definitive outcomes by URL. Defaults to a fresh
	// in-memory store owned by this client.
	Cache respcache.Store

	// Retry
	MaxAttempts int           // total attempts per URL, default 3
	BackoffUnit time.Duration // linear backoff unit, default 1s

	// Timeout bounds each individual attempt, default 30s.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(username, password string) Config {
	return Config{
		Username:    username,
		Password:    password,
		MaxAttempts: 3,
		BackoffUnit: 1 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// New creates a new Involves API client.
func New(cfg Config) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("credentials are required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = 1 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Cache == nil {
		cfg.Cache = respcache.NewMemoryStore()
	}

	auth := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
	headers := http.Header{}
	headers.Set("Authorization", "Basic "+auth)
	headers.Set("X-AGILE-CLIENT", "EXTERNAL_APP")
	headers.Set("Accept-Version", "2020-02-26")
	headers.Set("Accept", "application/json")

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:   cfg.Cache,
		config:  cfg,
		headers: headers,
		logger:  logging.NewLogger("fetch"),
	}, nil
}

// FetchOption adjusts the behavior of a single fetch.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	quietNotFound bool
}

// QuietNotFound downgrades 404 diagnostics to debug level. Used for probes
// against sub-resources that legitimately may not exist.
func QuietNotFound() FetchOption {
	return func(o *fetchOptions) {
		o.quietNotFound = true
	}
}

// FetchJSON performs one GET and classifies the outcome. The cache is
// consulted first; definitive outcomes (success, empty, not-found) are
// memoized, failed outcomes are not. Ordinary HTTP and network failures
// never surface as errors, only as Result values.
func (c *Client) FetchJSON(ctx context.Context, url string, opts ...FetchOption) Result {
	var options fetchOptions
	for _, opt := range opts {
		opt(&options)
	}

	if entry, err := c.cache.Get(ctx, url); err == nil {
		c.logger.Debug().Str("url", url).Str("outcome", entry.Outcome).Msg("Cache hit")
		return resultFromEntry(entry)
	} else if err != respcache.ErrMiss {
		c.logger.Warn().Err(err).Str("url", url).Msg("Cache get error")
	}

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	result := retryWithBackoff(ctx, c.config.MaxAttempts, c.config.BackoffUnit, c.logger, func() (Result, ErrorClass, bool) {
		return c.attempt(ctx, url, options)
	})

	if result.Outcome != OutcomeFailed {
		if err := c.cache.Set(ctx, url, result.toEntry()); err != nil {
			c.logger.Warn().Err(err).Str("url", url).Msg("Failed to cache outcome")
		}
	}

	return result
}

// attempt executes a single request and classifies its outcome. The third
// return value reports whether the failure is transient.
func (c *Client) attempt(ctx context.Context, url string, options fetchOptions) (Result, ErrorClass, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		// Not a network condition: the URL itself is unusable.
		c.logger.Error().Err(err).Str("url", url).Msg("Request construction failed")
		return Result{
			Outcome: OutcomeFailed,
			Err:     fmt.Errorf("%w: %v", ErrInvalidRequest, err),
		}, "", false
	}
	req.Header = c.headers.Clone()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		return Result{Outcome: OutcomeFailed, Err: err}, ErrorClassNetwork, true
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", url).Msg("Reading response body failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return Result{Outcome: OutcomeFailed, StatusCode: resp.StatusCode, Err: err}, ErrorClassNetwork, true
	}

	requestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return Result{Outcome: OutcomeEmpty, StatusCode: resp.StatusCode}, "", false

	case resp.StatusCode == http.StatusNotFound:
		event := c.logger.Warn()
		if options.quietNotFound {
			event = c.logger.Debug()
		}
		event.Str("url", url).Msg("Resource not found")
		return Result{Outcome: OutcomeNotFound, StatusCode: resp.StatusCode}, "", false

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 {
			return Result{Outcome: OutcomeEmpty, StatusCode: resp.StatusCode}, "", false
		}
		if !json.Valid(trimmed) {
			c.logger.Error().Str("url", url).Msg("Response body is not valid JSON")
			errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
			return Result{
				Outcome:    OutcomeFailed,
				StatusCode: resp.StatusCode,
				Err:        ErrMalformedBody,
			}, ErrorClassDecode, false
		}
		return Result{
			Outcome:    OutcomeSuccess,
			StatusCode: resp.StatusCode,
			Body:       json.RawMessage(trimmed),
		}, "", false

	default:
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Involves request error")
		return Result{
			Outcome:    OutcomeFailed,
			StatusCode: resp.StatusCode,
			Err: &APIError{
				StatusCode: resp.StatusCode,
				Class:      class,
				Message:    resp.Status,
			},
		}, class, true
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetLogger replaces the client logger (for testing diagnostics).
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// Cache returns the response cache backing this client.
func (c *Client) Cache() respcache.Store {
	return c.cache
}
