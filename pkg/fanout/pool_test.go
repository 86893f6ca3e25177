package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/retailsync/involves-etl/pkg/client"
	"github.com/retailsync/involves-etl/pkg/delta"
)

// scriptedFetcher returns a per-identifier result and tracks concurrency.
type scriptedFetcher struct {
	results map[string]client.Result
	delay   time.Duration

	mu          sync.Mutex
	requests    int
	inFlight    int
	maxInFlight int
}

func (f *scriptedFetcher) FetchJSON(_ context.Context, url string, _ ...client.FetchOption) client.Result {
	f.mu.Lock()
	f.requests++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	for id, result := range f.results {
		if url == "https://api.example.com/details/"+id {
			return result
		}
	}
	return client.Result{Outcome: client.OutcomeNotFound, StatusCode: 404}
}

func successBody(id string) client.Result {
	body, _ := json.Marshal(map[string]string{"name": "item " + id})
	return client.Result{Outcome: client.OutcomeSuccess, StatusCode: 200, Body: body}
}

const detailTemplate = "https://api.example.com/details/{id}"

func TestFetchDetails_EmptyInput(t *testing.T) {
	fetcher := &scriptedFetcher{}
	pool := New(fetcher, DefaultConfig())

	got := pool.FetchDetails(context.Background(), detailTemplate, delta.New(), Options{})
	if got != nil {
		t.Errorf("FetchDetails() = %v, want nil", got)
	}
	if fetcher.requests != 0 {
		t.Errorf("issued %d requests, want 0", fetcher.requests)
	}
}

func TestFetchDetails_PartialFailure(t *testing.T) {
	results := map[string]client.Result{}
	ids := delta.New()
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("%d", i)
		ids.Add(id)
		if i <= 3 {
			results[id] = client.Result{Outcome: client.OutcomeFailed, Err: client.ErrRetryExhausted}
		} else {
			results[id] = successBody(id)
		}
	}

	pool := New(&scriptedFetcher{results: results}, DefaultConfig())
	got := pool.FetchDetails(context.Background(), detailTemplate, ids, Options{})

	if len(got) != 7 {
		t.Errorf("kept %d results, want 7", len(got))
	}
}

func TestFetchDetails_ConcurrencyBound(t *testing.T) {
	results := map[string]client.Result{}
	ids := delta.New()
	for i := 1; i <= 50; i++ {
		id := fmt.Sprintf("%d", i)
		ids.Add(id)
		results[id] = successBody(id)
	}

	fetcher := &scriptedFetcher{results: results, delay: 5 * time.Millisecond}
	pool := New(fetcher, Config{Workers: 5})
	got := pool.FetchDetails(context.Background(), detailTemplate, ids, Options{})

	if len(got) != 50 {
		t.Errorf("kept %d results, want 50", len(got))
	}
	if fetcher.maxInFlight > 5 {
		t.Errorf("max in-flight = %d, want <= 5", fetcher.maxInFlight)
	}
	if fetcher.maxInFlight < 2 {
		t.Errorf("max in-flight = %d, pool does not appear to run workers in parallel", fetcher.maxInFlight)
	}
}

func TestFetchDetails_AttachIDField(t *testing.T) {
	results := map[string]client.Result{
		"42": successBody("42"),
	}
	pool := New(&scriptedFetcher{results: results}, DefaultConfig())

	got := pool.FetchDetails(context.Background(), detailTemplate, delta.New("42"), Options{AttachIDField: "sourceId"})
	if len(got) != 1 {
		t.Fatalf("kept %d results, want 1", len(got))
	}

	var obj map[string]string
	if err := json.Unmarshal(got[0], &obj); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if obj["sourceId"] != "42" {
		t.Errorf("sourceId = %q, want \"42\"", obj["sourceId"])
	}
	if obj["name"] != "item 42" {
		t.Errorf("original payload lost: %v", obj)
	}
}

func TestFetchDetails_NotFoundDropped(t *testing.T) {
	results := map[string]client.Result{
		"1": successBody("1"),
		// "2" falls through to the fetcher's 404 default.
	}
	pool := New(&scriptedFetcher{results: results}, DefaultConfig())

	got := pool.FetchDetails(context.Background(), detailTemplate, delta.New("1", "2"), Options{QuietNotFound: true})
	if len(got) != 1 {
		t.Errorf("kept %d results, want 1", len(got))
	}
}

func TestFetchDetails_OneRequestPerIdentifier(t *testing.T) {
	results := map[string]client.Result{}
	ids := delta.New()
	for i := 1; i <= 20; i++ {
		id := fmt.Sprintf("%d", i)
		ids.Add(id)
		results[id] = successBody(id)
	}

	fetcher := &scriptedFetcher{results: results}
	pool := New(fetcher, DefaultConfig())
	pool.FetchDetails(context.Background(), detailTemplate, ids, Options{})

	if fetcher.requests != 20 {
		t.Errorf("issued %d requests, want 20", fetcher.requests)
	}
}
