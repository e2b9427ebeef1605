package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/refcache/pkg/cache"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingTier rejects every operation.
type failingTier struct{}

var errTierDown = errors.New("tier down")

func (failingTier) Load(context.Context) ([]byte, error) { return nil, errTierDown }
func (failingTier) Save(context.Context, []byte) error   { return errTierDown }
func (failingTier) Remove(context.Context) error         { return errTierDown }

func newCache(t *testing.T, opts ...cache.Option) *cache.Cache {
	t.Helper()

	c := cache.New(context.Background(), opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// eventRecorder collects delivered events.
type eventRecorder struct {
	events []cache.Event
	mu     sync.Mutex
}

func (r *eventRecorder) record(ev cache.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) snapshot() []cache.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cache.Event(nil), r.events...)
}

func (r *eventRecorder) waitFor(t *testing.T, n int) []cache.Event {
	t.Helper()

	require.Eventually(t, func() bool {
		return len(r.snapshot()) >= n
	}, time.Second, time.Millisecond)
	return r.snapshot()
}
