package tier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores the blob under a single Redis key.
type Redis struct {
	client redis.UniversalClient
	key    string
	expiry time.Duration
}

// RedisOption configures a Redis tier.
type RedisOption func(*Redis)

// WithExpiry sets a TTL on the Redis key, refreshed on every Save.
// A session tier typically uses the session lifetime here.
// Default: 0 (no expiry).
func WithExpiry(d time.Duration) RedisOption {
	return func(r *Redis) {
		r.expiry = max(d, 0)
	}
}

// NewRedis returns a tier that keeps the blob under key.
// Use pkg/redis to open the client.
func NewRedis(client redis.UniversalClient, key string, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		key:    key,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the Redis key holding the blob.
func (r *Redis) Key() string {
	return r.key
}

// Load returns the stored blob.
func (r *Redis) Load(ctx context.Context) ([]byte, error) {
	if err := r.check(); err != nil {
		return nil, err
	}

	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return data, nil
}

// Save overwrites the stored blob.
func (r *Redis) Save(ctx context.Context, data []byte) error {
	if err := r.check(); err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key, data, r.expiry).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

// Remove deletes the key.
func (r *Redis) Remove(ctx context.Context) error {
	if err := r.check(); err != nil {
		return err
	}

	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoveFailed, err)
	}
	return nil
}

func (r *Redis) check() error {
	if r.client == nil {
		return ErrNilClient
	}
	if r.key == "" {
		return ErrEmptyName
	}
	return nil
}
