// Package testutil provides testing utilities for the Involves extractor.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockInvolves is a configurable mock Involves API server for testing.
type MockInvolves struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	PathCounts        map[string]int
	LastRequestHeader http.Header
	inFlight          int
	MaxInFlight       int
}

// NewMockInvolves creates a new mock API server.
func NewMockInvolves() *MockInvolves {
	mock := &MockInvolves{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		mock.inFlight++
		if mock.inFlight > mock.MaxInFlight {
			mock.MaxInFlight = mock.inFlight
		}
		mock.mu.Unlock()

		defer func() {
			mock.mu.Lock()
			mock.inFlight--
			mock.mu.Unlock()
		}()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockInvolves) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockInvolves) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockInvolves) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastRequestHeader = nil
	m.MaxInFlight = 0
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockInvolves) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made against one path.
func (m *MockInvolves) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// GetMaxInFlight returns the highest number of concurrently served requests.
func (m *MockInvolves) GetMaxInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.MaxInFlight
}

// SetHandler sets a custom handler for a specific path.
func (m *MockInvolves) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockInvolves) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON configures a 200 response with the JSON encoding of v.
func (m *MockInvolves) SetJSON(path string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal mock body: %v", err))
	}
	m.SetResponse(path, MockResponse{StatusCode: http.StatusOK, Body: string(body)})
}

// SetPaginated serves items as an envelope-paged collection at path,
// honoring the page and size query parameters the way the Involves API
// does: 1-indexed pages, an items array, and a totalPages hint.
func (m *MockInvolves) SetPaginated(path string, items []any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		if size < 1 {
			size = 100
		}

		totalPages := (len(items) + size - 1) / size
		start := (page - 1) * size
		end := start + size
		if start > len(items) {
			start = len(items)
		}
		if end > len(items) {
			end = len(items)
		}

		body, _ := json.Marshal(map[string]any{
			"items":      items[start:end],
			"totalPages": totalPages,
		})
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})
}

// SetDetail serves one detail object per identifier under prefix, e.g.
// prefix "/v3/categories" answers "/v3/categories/15".
func (m *MockInvolves) SetDetail(prefix string, byID map[string]any) {
	for id, v := range byID {
		m.SetJSON(prefix+"/"+id, v)
	}
}

// NamedItem builds the common {"id": n, "name": s} payload.
func NamedItem(id int64, name string) map[string]any {
	return map[string]any{"id": id, "name": name}
}
