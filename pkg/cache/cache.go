package cache

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is an in-memory store of encoded reference data with per-entry TTL,
// write-through mirroring to durability tiers, single-flight loading and a
// change notification channel.
//
// Values are kept JSON-encoded. Every read hands out a fresh copy, so callers
// can never mutate cached state in place.
//
// A Cache is safe for concurrent use. Create it with New and release it with Close.
type Cache struct {
	entries  map[string]*entry
	loading  map[string]*flight // registered until the load settles
	opts     *options
	notifier *notifier
	done     chan struct{}
	group    singleflight.Group
	wg       sync.WaitGroup

	mu        sync.Mutex
	persistMu sync.Mutex // orders tier writes; acquired before mu, never after

	token  uint64
	closed bool
}

// Stats is a point-in-time view of the cache contents.
type Stats struct {
	Keys     []string `json:"keys"`
	Count    int      `json:"count"`
	InFlight int      `json:"in_flight"`
}

// New creates a cache and rehydrates it from the configured tiers.
// Missing or malformed blobs are ignored.
//
// Example:
//
//	c := cache.New(ctx,
//	    cache.WithSessionTier(tier.NewRedis(client, "refcache:session:"+sessionID)),
//	    cache.WithDurableTier(tier.NewFile("/var/lib/refcache/durable.json")),
//	)
//	defer c.Close()
func New(ctx context.Context, opts ...Option) *Cache {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	c := &Cache{
		entries:  make(map[string]*entry),
		loading:  make(map[string]*flight),
		opts:     o,
		notifier: newNotifier(o.logger),
		done:     make(chan struct{}),
	}

	c.rehydrate(ctx)

	if o.cleanupInterval > 0 {
		c.wg.Add(1)
		go c.janitor()
	}

	return c
}

// Lookup returns a copy of the encoded value stored under key.
// An expired entry is evicted and reported as absent.
func (c *Cache) Lookup(key string) ([]byte, bool) {
	c.mu.Lock()
	data, ok, dirty := c.lookupLocked(key)
	c.mu.Unlock()

	c.opts.metrics.lookup(ok)
	if dirty.Durable() {
		c.mirror(context.Background(), dirty)
	}
	return data, ok
}

// Store inserts or replaces the entry under key.
// Durable entries are mirrored to their tier before Store returns.
// Subscribers receive an OpSet event naming the key.
func (c *Cache) Store(ctx context.Context, key string, data []byte, cfg Config) {
	now := c.opts.now()

	c.mu.Lock()
	prev := c.putLocked(key, data, cfg, now)
	c.supersedeLocked(key)
	c.emitLocked(Event{Op: OpSet, Key: key, At: now})
	c.mu.Unlock()

	c.mirror(ctx, cfg.Strategy, prev)
}

// Invalidate removes the entry under key, if any, and cancels promotion of an
// in-flight load for it. Both durable tiers are re-mirrored.
// Subscribers receive a broad OpInvalidate event.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	now := c.opts.now()

	c.mu.Lock()
	var removed []string
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		removed = []string{key}
	}
	c.supersedeLocked(key)
	c.opts.metrics.setEntries(len(c.entries))
	c.emitLocked(Event{Op: OpInvalidate, Removed: removed, At: now})
	c.mu.Unlock()

	c.opts.metrics.invalidated(len(removed))
	c.mirror(ctx, SessionDurable, ProcessDurable)
}

// InvalidatePattern removes every entry whose key contains a match of the
// regular expression pattern (unanchored search). It returns the number of
// removed entries. An invalid pattern is reported as ErrInvalidPattern and
// leaves the cache untouched.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, errors.Join(ErrInvalidPattern, err)
	}

	now := c.opts.now()

	c.mu.Lock()
	var removed []string
	for key := range c.entries {
		if re.MatchString(key) {
			delete(c.entries, key)
			removed = append(removed, key)
		}
	}
	for key := range c.loading {
		if re.MatchString(key) {
			c.supersedeLocked(key)
		}
	}
	slices.Sort(removed)
	c.opts.metrics.setEntries(len(c.entries))
	c.emitLocked(Event{Op: OpInvalidatePattern, Pattern: pattern, Removed: removed, At: now})
	c.mu.Unlock()

	c.opts.metrics.invalidated(len(removed))
	c.mirror(ctx, SessionDurable, ProcessDurable)

	return len(removed), nil
}

// Clear removes every entry, cancels promotion of all in-flight loads and
// deletes both tier blobs.
func (c *Cache) Clear(ctx context.Context) {
	now := c.opts.now()

	// Held through the blob removal so no mirror write can land in between.
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	removed := make([]string, 0, len(c.entries))
	for key := range c.entries {
		removed = append(removed, key)
	}
	slices.Sort(removed)
	c.entries = make(map[string]*entry)
	for key := range c.loading {
		c.supersedeLocked(key)
	}
	c.opts.metrics.setEntries(0)
	c.emitLocked(Event{Op: OpClear, Removed: removed, At: now})
	c.mu.Unlock()

	c.opts.metrics.invalidated(len(removed))
	c.removeTiersLocked(ctx)
}

// PurgeExpired removes all expired entries and returns how many were removed.
// It is the proactive counterpart of expiry-on-read.
func (c *Cache) PurgeExpired(ctx context.Context) int {
	now := c.opts.now()

	c.mu.Lock()
	var dirty []Strategy
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
			if e.strategy.Durable() {
				dirty = append(dirty, e.strategy)
			}
		}
	}
	c.opts.metrics.setEntries(len(c.entries))
	c.mu.Unlock()

	c.mirror(ctx, dirty...)
	return removed
}

// Stats reports the stored keys without evicting anything.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	return Stats{
		Keys:     keys,
		Count:    len(keys),
		InFlight: len(c.loading),
	}
}

// Subscribe registers fn to receive change events. Each subscriber gets its
// own ordered queue; fn never blocks the emitting operation and a panic in fn
// is recovered. fn must not call Close.
// The returned function unsubscribes; it is safe to call more than once.
func (c *Cache) Subscribe(fn func(Event)) (unsubscribe func()) {
	return c.notifier.subscribe(fn)
}

// Close stops the janitor, flushes both tiers one last time and stops
// event delivery after pending events are handed out.
// Close is idempotent. The cache still serves reads afterwards, but no
// longer mirrors or notifies.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()

	c.flush(context.Background())
	c.notifier.close()

	return nil
}

// janitor periodically removes expired entries.
func (c *Cache) janitor() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.PurgeExpired(context.Background())
		}
	}
}

// lookupLocked returns a copy of the live value under key. When an expired
// entry is evicted, dirty carries its strategy so the caller can re-mirror
// the tier after releasing the lock.
// Caller must hold the mutex.
func (c *Cache) lookupLocked(key string) (data []byte, ok bool, dirty Strategy) {
	e, found := c.entries[key]
	if !found {
		return nil, false, Ephemeral
	}
	if e.expired(c.opts.now()) {
		delete(c.entries, key)
		c.opts.metrics.setEntries(len(c.entries))
		return nil, false, e.strategy
	}
	return cloneBytes(e.data), true, Ephemeral
}

// putLocked replaces the entry under key and returns the strategy of the
// replaced entry (Ephemeral if there was none).
// Caller must hold the mutex.
func (c *Cache) putLocked(key string, data []byte, cfg Config, now time.Time) Strategy {
	prev := Ephemeral
	if old, ok := c.entries[key]; ok {
		prev = old.strategy
	}
	c.entries[key] = &entry{
		data:     cloneBytes(data),
		storedAt: now,
		ttl:      max(cfg.TTL, 0),
		strategy: cfg.Strategy,
	}
	c.opts.metrics.setEntries(len(c.entries))
	return prev
}

// supersedeLocked marks the in-flight load of key stale: its waiters still
// get the result, but it will not be promoted into the store. The load stays
// registered until it settles, so no second producer starts for key meanwhile.
// Caller must hold the mutex.
func (c *Cache) supersedeLocked(key string) {
	if f, ok := c.loading[key]; ok {
		f.stale = true
	}
}

// emitLocked queues an event for all subscribers unless the cache is closed.
// Emitting under the mutex keeps event order identical to mutation order.
// Caller must hold the mutex.
func (c *Cache) emitLocked(ev Event) {
	if c.closed {
		return
	}
	c.notifier.emit(ev)
}
