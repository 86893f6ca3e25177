// Package metrics provides the Prometheus registry handle for the
// extractor. Metrics are defined in the packages that own them (client,
// respcache, pagination, fanout) to keep the dependency graph acyclic;
// this package documents the catalogue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by all packages.
// Metrics register themselves via promauto at package init.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request metrics (pkg/client):
//   - involves_requests_total{status} (Counter): requests by HTTP status
//     ("network_error" for transport failures)
//   - involves_request_duration_seconds (Histogram): full fetch duration
//     including retries
//   - involves_errors_total{class} (Counter): failures by class
//     (client, server, network, decode)
//
// Retry metrics (pkg/client):
//   - involves_retries_total{error_class} (Counter): retry attempts
//   - involves_retry_exhausted_total{error_class} (Counter): URLs that
//     exhausted the attempt ceiling
//
// Cache metrics (pkg/respcache):
//   - involves_cache_hits_total{store} (Counter): memoized outcomes served
//   - involves_cache_misses_total{store} (Counter): lookups that fetched
//   - involves_cache_errors_total{store,operation} (Counter): store faults
//
// Pagination metrics (pkg/pagination):
//   - involves_pages_fetched_total (Counter): pages fetched across runs
//
// Fan-out metrics (pkg/fanout):
//   - involves_fanout_inflight (Gauge): detail lookups currently in flight
//   - involves_fanout_processed_total{result} (Counter): per-identifier
//     lookups by result ("kept", "dropped")
//
// Example Prometheus Queries:
//
//   # Cache hit rate
//   sum(rate(involves_cache_hits_total[5m])) /
//   (sum(rate(involves_cache_hits_total[5m])) + sum(rate(involves_cache_misses_total[5m])))
//
//   # Retry exhaustion rate by class
//   rate(involves_retry_exhausted_total[5m])
//
//   # P95 fetch latency
//   histogram_quantile(0.95, rate(involves_request_duration_seconds_bucket[5m]))
