package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// durableStrategies lists the strategies that own a tier, in rehydration order.
var durableStrategies = [...]Strategy{SessionDurable, ProcessDurable}

// rehydrate loads both tiers concurrently and merges their live entries.
// When a key appears in both blobs the most recently stored entry wins.
func (c *Cache) rehydrate(ctx context.Context) {
	var (
		g      errgroup.Group
		loaded [len(strategyNames)]map[string]*entry
	)

	for _, s := range durableStrategies {
		t := c.opts.tiers[s]
		if t == nil {
			continue
		}
		g.Go(func() error {
			loaded[s] = c.readTier(ctx, s, t)
			return nil
		})
	}
	_ = g.Wait()

	now := c.opts.now()
	for _, s := range durableStrategies {
		for key, e := range loaded[s] {
			if e.expired(now) {
				continue
			}
			if cur, ok := c.entries[key]; ok && cur.storedAt.After(e.storedAt) {
				continue
			}
			c.entries[key] = e
		}
	}
	c.opts.metrics.setEntries(len(c.entries))

	if len(c.entries) > 0 {
		c.opts.logger.DebugContext(ctx, "cache rehydrated", slog.Int("entries", len(c.entries)))
	}
}

// readTier decodes one tier blob. Any failure yields no data.
func (c *Cache) readTier(ctx context.Context, s Strategy, t Tier) map[string]*entry {
	ctx, cancel := context.WithTimeout(ctx, c.opts.persistTimeout)
	defer cancel()

	data, err := t.Load(ctx)
	if err != nil {
		c.opts.logger.DebugContext(ctx, "cache tier not loaded",
			slog.String("tier", s.String()),
			slog.Any("error", err),
		)
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		c.persistFailed(ctx, s, "decode", err)
		return nil
	}

	out := make(map[string]*entry, len(raw))
	for key, msg := range raw {
		var r record
		if err := json.Unmarshal(msg, &r); err != nil {
			continue
		}
		if e, ok := r.entry(s); ok {
			out[key] = e
		}
	}
	return out
}

// mirror rewrites the blob of every durable strategy in strategies.
// Nothing is written after Close.
func (c *Cache) mirror(ctx context.Context, strategies ...Strategy) {
	if len(strategies) == 0 {
		return
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	var seen [len(strategyNames)]bool
	for _, s := range strategies {
		if !s.Durable() || seen[s] {
			continue
		}
		seen[s] = true
		c.writeTier(ctx, s)
	}
}

// flush rewrites both tiers unconditionally.
func (c *Cache) flush(ctx context.Context) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	for _, s := range durableStrategies {
		c.writeTier(ctx, s)
	}
}

// writeTier serializes every entry of strategy s and saves the blob.
// The snapshot is taken after persistMu is held, so the last write always
// reflects the latest state.
// Caller must hold persistMu.
func (c *Cache) writeTier(ctx context.Context, s Strategy) {
	t := c.opts.tiers[s]
	if t == nil {
		return
	}

	c.mu.Lock()
	blob := make(map[string]record)
	for key, e := range c.entries {
		if e.strategy == s {
			blob[key] = newRecord(e)
		}
	}
	c.mu.Unlock()

	data, err := json.Marshal(blob)
	if err != nil {
		c.persistFailed(ctx, s, "encode", err)
		return
	}

	ctx, cancel := c.persistContext(ctx)
	defer cancel()

	if err := t.Save(ctx, data); err != nil {
		c.persistFailed(ctx, s, "save", err)
	}
}

// removeTiersLocked deletes both tier blobs.
// Caller must hold persistMu.
func (c *Cache) removeTiersLocked(ctx context.Context) {
	for _, s := range durableStrategies {
		t := c.opts.tiers[s]
		if t == nil {
			continue
		}
		rctx, cancel := c.persistContext(ctx)
		if err := t.Remove(rctx); err != nil {
			c.persistFailed(rctx, s, "remove", err)
		}
		cancel()
	}
}

// persistContext detaches tier I/O from the caller's cancellation and bounds it.
func (c *Cache) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.opts.persistTimeout)
}

// persistFailed records a swallowed tier error. The in-memory store stays
// authoritative.
func (c *Cache) persistFailed(ctx context.Context, s Strategy, op string, err error) {
	c.opts.metrics.persistFailed(s)
	c.opts.logger.WarnContext(ctx, "cache tier operation failed",
		slog.String("tier", s.String()),
		slog.String("op", op),
		slog.Any("error", err),
	)
}
