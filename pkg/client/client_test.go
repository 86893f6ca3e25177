package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/retailsync/involves-etl/pkg/respcache"
)

// countingServer tracks requests per path.
type countingServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests map[string]int
}

func newCountingServer(handler http.HandlerFunc) *countingServer {
	cs := &countingServer{requests: map[string]int{}}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.requests[r.URL.Path]++
		cs.mu.Unlock()
		handler(w, r)
	}))
	return cs
}

func (cs *countingServer) count(path string) int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.requests[path]
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig("etl-user", "etl-pass")
	cfg.BackoffUnit = time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	c.SetLogger(zerolog.Nop())
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:   "valid config",
			config: DefaultConfig("user", "pass"),
		},
		{
			name:        "missing username",
			config:      Config{Password: "pass"},
			expectError: true,
		},
		{
			name:        "missing password",
			config:      Config{Username: "user"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if c == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{Username: "user", Password: "pass"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if c.config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", c.config.MaxAttempts)
	}
	if c.config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", c.config.Timeout)
	}
	if c.config.BackoffUnit != time.Second {
		t.Errorf("BackoffUnit = %v, want 1s", c.config.BackoffUnit)
	}
	if c.Cache() == nil {
		t.Error("default cache not installed")
	}
}

func TestFetchJSON_Headers(t *testing.T) {
	var header http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(t)
	result := c.FetchJSON(context.Background(), server.URL+"/check")
	if !result.OK() {
		t.Fatalf("FetchJSON() outcome = %v", result.Outcome)
	}

	// Basic base64("etl-user:etl-pass")
	if got := header.Get("Authorization"); got != "Basic ZXRsLXVzZXI6ZXRsLXBhc3M=" {
		t.Errorf("Authorization = %q", got)
	}
	if got := header.Get("X-AGILE-CLIENT"); got != "EXTERNAL_APP" {
		t.Errorf("X-AGILE-CLIENT = %q", got)
	}
	if got := header.Get("Accept-Version"); got != "2020-02-26" {
		t.Errorf("Accept-Version = %q", got)
	}
}

func TestFetchJSON_CacheIdempotent(t *testing.T) {
	server := newCountingServer(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":1}`))
	})
	defer server.Close()

	c := newTestClient(t)
	url := server.URL + "/skus"

	first := c.FetchJSON(context.Background(), url)
	if !first.OK() {
		t.Fatalf("first fetch outcome = %v", first.Outcome)
	}

	for i := 0; i < 5; i++ {
		result := c.FetchJSON(context.Background(), url)
		if !result.OK() || string(result.Body) != `{"id":1}` {
			t.Fatalf("cached fetch %d = %+v", i, result)
		}
	}

	if got := server.count("/skus"); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}

func TestFetchJSON_CachesAbsentOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		outcome Outcome
	}{
		{name: "no content", status: 204, outcome: OutcomeEmpty},
		{name: "empty body", status: 200, body: "", outcome: OutcomeEmpty},
		{name: "not found", status: 404, outcome: OutcomeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newCountingServer(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					w.Write([]byte(tt.body))
				}
			})
			defer server.Close()

			c := newTestClient(t)
			url := server.URL + "/probe"

			first := c.FetchJSON(context.Background(), url)
			second := c.FetchJSON(context.Background(), url)

			if first.Outcome != tt.outcome || second.Outcome != tt.outcome {
				t.Errorf("outcomes = %v/%v, want %v", first.Outcome, second.Outcome, tt.outcome)
			}
			if got := server.count("/probe"); got != 1 {
				t.Errorf("server saw %d requests, want 1", got)
			}
		})
	}
}

func TestFetchJSON_RetryThenSucceed(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := newTestClient(t)
	result := c.FetchJSON(context.Background(), server.URL+"/flaky")

	if !result.OK() {
		t.Fatalf("outcome = %v, want success on 3rd attempt", result.Outcome)
	}
	if string(result.Body) != `{"ok":true}` {
		t.Errorf("Body = %s", result.Body)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestFetchJSON_RetryExhausted(t *testing.T) {
	server := newCountingServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer server.Close()

	c := newTestClient(t)
	result := c.FetchJSON(context.Background(), server.URL+"/down")

	if result.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", result.Outcome)
	}
	if !errors.Is(result.Err, ErrRetryExhausted) {
		t.Errorf("Err = %v, want ErrRetryExhausted", result.Err)
	}
	if got := server.count("/down"); got != 3 {
		t.Errorf("server saw %d attempts, want exactly 3", got)
	}

	// Failed outcomes are not cached: a later call attempts again.
	c.FetchJSON(context.Background(), server.URL+"/down")
	if got := server.count("/down"); got != 6 {
		t.Errorf("server saw %d attempts after second call, want 6", got)
	}
}

func TestFetchJSON_NotFoundNotRetried(t *testing.T) {
	server := newCountingServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	c := newTestClient(t)
	result := c.FetchJSON(context.Background(), server.URL+"/missing")

	if result.Outcome != OutcomeNotFound {
		t.Fatalf("outcome = %v, want not_found", result.Outcome)
	}
	if !result.Absent() {
		t.Error("Absent() should be true for 404")
	}
	if got := server.count("/missing"); got != 1 {
		t.Errorf("server saw %d requests, want 1 (no retry on 404)", got)
	}
}

func TestFetchJSON_NotFoundSuppression(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tests := []struct {
		name     string
		opts     []FetchOption
		wantWarn bool
	}{
		{name: "default logs warning", wantWarn: true},
		{name: "quiet suppresses warning", opts: []FetchOption{QuietNotFound()}, wantWarn: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := newTestClient(t)
			c.SetLogger(zerolog.New(&buf))

			result := c.FetchJSON(context.Background(), server.URL+"/optional", tt.opts...)
			if result.Outcome != OutcomeNotFound {
				t.Fatalf("outcome = %v, want not_found", result.Outcome)
			}

			gotWarn := strings.Contains(buf.String(), `"level":"warn"`)
			if gotWarn != tt.wantWarn {
				t.Errorf("warn logged = %v, want %v (output: %s)", gotWarn, tt.wantWarn, buf.String())
			}
		})
	}
}

func TestFetchJSON_MalformedBodyPermanent(t *testing.T) {
	server := newCountingServer(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"broken":`))
	})
	defer server.Close()

	c := newTestClient(t)
	result := c.FetchJSON(context.Background(), server.URL+"/garbled")

	if result.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", result.Outcome)
	}
	if !errors.Is(result.Err, ErrMalformedBody) {
		t.Errorf("Err = %v, want ErrMalformedBody", result.Err)
	}
	if got := server.count("/garbled"); got != 1 {
		t.Errorf("server saw %d requests, want 1 (no retry on parse failure)", got)
	}
}

func TestFetchJSON_NetworkErrorRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL + "/gone"
	server.Close() // Connection refused from here on.

	c := newTestClient(t)
	result := c.FetchJSON(context.Background(), url)

	if result.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", result.Outcome)
	}
	if !errors.Is(result.Err, ErrRetryExhausted) {
		t.Errorf("Err = %v, want ErrRetryExhausted", result.Err)
	}
}

func TestFetchJSON_InvalidURL(t *testing.T) {
	c := newTestClient(t)
	result := c.FetchJSON(context.Background(), "http://bad url with spaces")

	if result.Outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", result.Outcome)
	}
	if !errors.Is(result.Err, ErrInvalidRequest) {
		t.Errorf("Err = %v, want ErrInvalidRequest", result.Err)
	}
}

func TestFetchJSON_SharedCacheAcrossClients(t *testing.T) {
	server := newCountingServer(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":7}`))
	})
	defer server.Close()

	store := respcache.NewMemoryStore()

	cfgA := DefaultConfig("u", "p")
	cfgA.Cache = store
	a, err := New(cfgA)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	a.SetLogger(zerolog.Nop())

	cfgB := DefaultConfig("u", "p")
	cfgB.Cache = store
	b, err := New(cfgB)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	b.SetLogger(zerolog.Nop())

	url := server.URL + "/shared"
	a.FetchJSON(context.Background(), url)
	result := b.FetchJSON(context.Background(), url)

	if !result.OK() {
		t.Fatalf("outcome = %v", result.Outcome)
	}
	if got := server.count("/shared"); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{400, ErrorClassClient},
		{403, ErrorClassClient},
		{429, ErrorClassClient},
		{500, ErrorClassServer},
		{503, ErrorClassServer},
		{520, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestBackoffDelay_Linear(t *testing.T) {
	unit := 100 * time.Millisecond
	for k := 1; k <= 3; k++ {
		want := time.Duration(k) * unit
		if got := backoffDelay(k, unit); got != want {
			t.Errorf("backoffDelay(%d) = %v, want %v", k, got, want)
		}
	}
}
