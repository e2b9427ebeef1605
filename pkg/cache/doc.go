// Package cache provides an in-memory cache for slowly-changing reference
// data with per-entry TTL, optional write-through durability tiers,
// single-flight loading and change notifications.
//
// # Entries
//
// Values are stored JSON-encoded together with the time they were written
// and a [Config]:
//
//   - TTL: maximum age. Zero means the entry never expires by time.
//   - Strategy: [Ephemeral] (memory only), [SessionDurable] or
//     [ProcessDurable].
//
// An entry is expired once now-storedAt >= TTL. Expired entries are evicted
// when read, by [Cache.PurgeExpired], or by the janitor started with
// [WithCleanupInterval].
//
// Every read decodes a fresh copy, so mutating a returned value never
// changes the cached one:
//
//	c := cache.New(ctx)
//	defer c.Close()
//
//	_ = cache.Set(ctx, c, "business_info", info, cache.Config{TTL: 24 * time.Hour})
//	info, ok := cache.Get[BusinessInfo](c, "business_info")
//
// # Durability tiers
//
// Each durable strategy is backed by a [Tier] holding one blob with all
// entries of that strategy:
//
//	{"<key>": {"value": <json>, "storedAt": <unix ms>, "ttl": <ms>}}
//
// Every mutation of durable state rewrites the whole blob before the
// mutating call returns. Tier failures are logged and swallowed; memory
// stays authoritative. [New] rehydrates both tiers and skips missing,
// malformed or expired records. Backends live in pkg/tier.
//
// # Loading
//
// [GetOrLoad] and [Cache.Load] return a hit directly. On a miss the first
// caller starts the producer and concurrent callers for the same key join
// it, so the producer runs once per load generation:
//
//	users, err := cache.GetOrLoad(ctx, c, "users_all", fetchUsers,
//	    cache.Config{TTL: 5 * time.Minute})
//
// Errors reach every waiter and are never cached. Invalidating, clearing or
// storing a key that is being loaded supersedes the load: its waiters still
// get the result, but it is not stored. Callers arriving meanwhile wait for it
// to settle and then start a fresh load, so a producer never runs twice at
// once for the same key.
//
// # Invalidation and events
//
// [Cache.Invalidate], [Cache.InvalidatePattern] (unanchored regexp search
// over keys) and [Cache.Clear] remove entries. [Cache.Subscribe] delivers an
// [Event] for each store and invalidation, in order, on a per-subscriber
// goroutine. Invalidation events are broad: Key is empty and Removed lists
// the dropped keys.
//
// # Observability
//
// [WithMetrics] records Prometheus metrics created by [NewMetrics].
// Each producer run is traced as a "refcache.load" span using the provider
// set with [WithTracerProvider] or the global one.
package cache
