// Package respcache provides per-run memoization of Involves API fetch
// outcomes keyed by exact request URL.
//
// # Why outcomes, not bodies
//
// The client classifies every fetch into success, empty (204 / no body),
// not-found (404), or failed. The first three are definitive for the rest
// of the run and are memoized; failed outcomes are transient and are not,
// so a later request for the same URL gets a fresh network attempt.
//
// # Stores
//
// MemoryStore is the default: an in-process map that lives exactly as long
// as the run that created it. RedisStore serves deployments that already
// run Redis for other tooling; its keys carry a run-scoped prefix plus a
// TTL, so the semantics stay per-run even though the backend outlives the
// process.
//
// # Usage
//
//	store := respcache.NewMemoryStore()
//	entry, err := store.Get(ctx, url)
//	if err == respcache.ErrMiss {
//		// fetch, classify, then memoize definitive outcomes:
//		store.Set(ctx, url, &respcache.Entry{Outcome: respcache.OutcomeSuccess, ...})
//	}
package respcache
