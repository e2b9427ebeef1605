package cache

import (
	"context"
	"encoding/json"
	"errors"
)

// Get returns a fresh decoded copy of the value stored under key.
// An entry that cannot be decoded into T is evicted and reported as absent.
func Get[T any](c *Cache, key string) (T, bool) {
	var zero T

	data, ok := c.Lookup(key)
	if !ok {
		return zero, false
	}

	v, err := decode[T](data)
	if err != nil {
		c.evictUndecodable(key, data)
		return zero, false
	}
	return v, true
}

// Set encodes v and stores it under key.
func Set[T any](ctx context.Context, c *Cache, key string, v T, cfg Config) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Join(ErrMarshal, err)
	}
	c.Store(ctx, key, data, cfg)
	return nil
}

// GetOrLoad returns the cached value under key, or calls producer once per
// load generation to compute it. See (*Cache).Load for the loading semantics.
//
// Example:
//
//	users, err := cache.GetOrLoad(ctx, c, "users_all",
//	    func(ctx context.Context) ([]User, error) { return api.Users(ctx) },
//	    cache.Config{TTL: 5 * time.Minute},
//	)
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, producer func(context.Context) (T, error), cfg Config) (T, error) {
	var zero T

	p := func(ctx context.Context) ([]byte, error) {
		v, err := producer(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Join(ErrMarshal, err)
		}
		return data, nil
	}

	data, err := c.Load(ctx, key, p, cfg)
	if err != nil {
		return zero, err
	}

	v, err := decode[T](data)
	if err == nil {
		return v, nil
	}

	// The stored bytes no longer match T. Drop them and load once more.
	c.evictUndecodable(key, data)
	data, err = c.Load(ctx, key, p, cfg)
	if err != nil {
		return zero, err
	}
	return decode[T](data)
}

func decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}

// evictUndecodable removes key only if it still holds data, so a value
// stored concurrently is left alone.
func (c *Cache) evictUndecodable(key string, data []byte) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || string(e.data) != string(data) {
		c.mu.Unlock()
		return
	}
	delete(c.entries, key)
	c.opts.metrics.setEntries(len(c.entries))
	c.mu.Unlock()

	if e.strategy.Durable() {
		c.mirror(context.Background(), e.strategy)
	}
}
