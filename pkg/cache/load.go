package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Producer computes the encoded value for a missing key.
type Producer func(ctx context.Context) ([]byte, error)

// flight is the registration of one load generation.
type flight struct {
	done  chan struct{} // closed when the load settles
	token uint64
	stale bool // superseded; the result is not promoted
}

// Load returns the value under key, calling producer on a miss.
//
// A hit is returned without invoking producer. On a miss the caller either
// joins the load already in flight for key or starts a new one; producer runs
// at most once per load generation and never twice concurrently for one key.
// Every caller of a generation gets the same outcome. A successful result is
// stored with the cfg of the caller that started the load. Errors are
// returned verbatim and never cached.
//
// A load superseded by Store, Invalidate, InvalidatePattern or Clear is not
// joined: new callers wait for it to settle and then start the next generation.
//
// The producer runs detached from the caller's cancellation: a caller whose
// ctx is done returns ctx.Err(), while the load completes and populates the
// cache for later callers.
func (c *Cache) Load(ctx context.Context, key string, producer Producer, cfg Config) ([]byte, error) {
	for {
		c.mu.Lock()
		data, ok, dirty := c.lookupLocked(key)
		if ok {
			c.mu.Unlock()
			c.opts.metrics.lookup(true)
			return data, nil
		}

		f, joined := c.loading[key]
		if joined && f.stale {
			c.mu.Unlock()
			if dirty.Durable() {
				c.mirror(ctx, dirty)
			}
			select {
			case <-f.done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if !joined {
			c.token++
			f = &flight{token: c.token, done: make(chan struct{})}
			c.loading[key] = f
		}
		// Registering under the mutex leaves no window for a second producer call:
		// the load can only settle after acquiring the same mutex.
		ch := c.group.DoChan(flightKey(key, f.token), func() (any, error) {
			return c.run(ctx, key, f, producer, cfg)
		})
		c.mu.Unlock()

		c.opts.metrics.lookup(false)
		if joined {
			c.opts.metrics.joined()
		}
		if dirty.Durable() {
			c.mirror(ctx, dirty)
		}

		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			return cloneBytes(res.Val.([]byte)), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// run executes one load generation and settles it.
func (c *Cache) run(ctx context.Context, key string, f *flight, producer Producer, cfg Config) ([]byte, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := c.opts.tracer.Start(ctx, "refcache.load",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.String("cache.strategy", cfg.Strategy.String()),
		),
	)
	defer span.End()

	start := time.Now()
	data, err := callProducer(ctx, producer)
	if err != nil {
		c.mu.Lock()
		c.settleLocked(key, f)
		c.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.opts.metrics.loaded(outcomeError, time.Since(start))
		return nil, err
	}
	data = cloneBytes(data)

	now := c.opts.now()
	prev := Ephemeral

	c.mu.Lock()
	promoted := !f.stale
	if promoted {
		prev = c.putLocked(key, data, cfg, now)
		c.emitLocked(Event{Op: OpSet, Key: key, At: now})
	}
	c.settleLocked(key, f)
	c.mu.Unlock()

	if promoted {
		c.mirror(ctx, cfg.Strategy, prev)
	}

	span.SetAttributes(attribute.Bool("cache.promoted", promoted))
	c.opts.metrics.loaded(outcomeSuccess, time.Since(start))
	return data, nil
}

// settleLocked unregisters f and releases callers waiting for it.
// Caller must hold the mutex.
func (c *Cache) settleLocked(key string, f *flight) {
	if c.loading[key] == f {
		delete(c.loading, key)
	}
	close(f.done)
}

// callProducer invokes producer and converts a panic into an error.
func callProducer(ctx context.Context, producer Producer) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrProducerPanic, r)
		}
	}()
	return producer(ctx)
}

// flightKey gives every load generation its own singleflight slot, so a
// settled generation can never be joined by a new caller.
func flightKey(key string, token uint64) string {
	return key + "\x00" + strconv.FormatUint(token, 10)
}
