package cache_test

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/refcache/pkg/cache"
	"github.com/dmitrymomot/refcache/pkg/tier"
)

type blobRecord struct {
	Value    json.RawMessage `json:"value"`
	StoredAt int64           `json:"storedAt"`
	TTL      int64           `json:"ttl"`
}

func readBlob(t *testing.T, tr cache.Tier) map[string]blobRecord {
	t.Helper()

	data, err := tr.Load(context.Background())
	require.NoError(t, err)

	var blob map[string]blobRecord
	require.NoError(t, json.Unmarshal(data, &blob))
	return blob
}

func TestPersistence(t *testing.T) {
	t.Parallel()

	t.Run("round trip through a new instance", func(t *testing.T) {
		t.Parallel()

		durable := tier.NewMemory()
		ctx := context.Background()

		first := newCache(t, cache.WithDurableTier(durable))
		require.NoError(t, cache.Set(ctx, first, "business_info", warehouse{ID: "1", Name: "Acme"},
			cache.Config{Strategy: cache.ProcessDurable}))

		second := newCache(t, cache.WithDurableTier(durable))
		v, ok := cache.Get[warehouse](second, "business_info")
		require.True(t, ok)
		require.Equal(t, warehouse{ID: "1", Name: "Acme"}, v)
	})

	t.Run("blob layout", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		session := tier.NewMemory()
		c := newCache(t, cache.WithSessionTier(session), cache.WithClock(clock.Now))

		require.NoError(t, cache.Set(context.Background(), c, "warehouses_all", []string{"a"},
			cache.Config{TTL: 30 * time.Minute, Strategy: cache.SessionDurable}))

		blob := readBlob(t, session)
		require.Len(t, blob, 1)
		rec := blob["warehouses_all"]
		require.JSONEq(t, `["a"]`, string(rec.Value))
		require.Equal(t, clock.Now().UnixMilli(), rec.StoredAt)
		require.Equal(t, (30 * time.Minute).Milliseconds(), rec.TTL)
	})

	t.Run("tiers are independent", func(t *testing.T) {
		t.Parallel()

		session, durable := tier.NewMemory(), tier.NewMemory()
		c := newCache(t, cache.WithSessionTier(session), cache.WithDurableTier(durable))
		ctx := context.Background()

		require.NoError(t, cache.Set(ctx, c, "s", 1, cache.Config{Strategy: cache.SessionDurable}))
		require.NoError(t, cache.Set(ctx, c, "d", 2, cache.Config{Strategy: cache.ProcessDurable}))
		require.NoError(t, cache.Set(ctx, c, "e", 3, cache.Config{}))

		require.Equal(t, []string{"s"}, keysOf(readBlob(t, session)))
		require.Equal(t, []string{"d"}, keysOf(readBlob(t, durable)))
	})

	t.Run("changing strategy moves the entry", func(t *testing.T) {
		t.Parallel()

		session, durable := tier.NewMemory(), tier.NewMemory()
		c := newCache(t, cache.WithSessionTier(session), cache.WithDurableTier(durable))
		ctx := context.Background()

		require.NoError(t, cache.Set(ctx, c, "k", 1, cache.Config{Strategy: cache.SessionDurable}))
		require.NoError(t, cache.Set(ctx, c, "k", 2, cache.Config{Strategy: cache.ProcessDurable}))

		require.Empty(t, readBlob(t, session))
		require.Equal(t, []string{"k"}, keysOf(readBlob(t, durable)))
	})

	t.Run("zero ttl survives restart", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		durable := tier.NewMemory()
		ctx := context.Background()

		first := newCache(t, cache.WithDurableTier(durable), cache.WithClock(clock.Now))
		require.NoError(t, cache.Set(ctx, first, "expense_categories_all", []string{"travel"},
			cache.Config{Strategy: cache.ProcessDurable}))

		clock.Advance(365 * 24 * time.Hour)

		second := newCache(t, cache.WithDurableTier(durable), cache.WithClock(clock.Now))
		v, ok := cache.Get[[]string](second, "expense_categories_all")
		require.True(t, ok)
		require.Equal(t, []string{"travel"}, v)
	})

	t.Run("expired records are skipped on rehydrate", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		durable := tier.NewMemory()
		ctx := context.Background()

		first := newCache(t, cache.WithDurableTier(durable), cache.WithClock(clock.Now))
		require.NoError(t, cache.Set(ctx, first, "short", 1, cache.Config{TTL: time.Minute, Strategy: cache.ProcessDurable}))
		require.NoError(t, cache.Set(ctx, first, "long", 2, cache.Config{TTL: time.Hour, Strategy: cache.ProcessDurable}))

		clock.Advance(2 * time.Minute)

		second := newCache(t, cache.WithDurableTier(durable), cache.WithClock(clock.Now))
		require.Equal(t, []string{"long"}, second.Stats().Keys)
	})

	t.Run("malformed records are skipped", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UnixMilli()
		durable := tier.NewMemory()
		blob := `{
			"good": {"value": {"id":"1"}, "storedAt": ` + itoa(now) + `, "ttl": 0},
			"no_value": {"storedAt": ` + itoa(now) + `, "ttl": 0},
			"no_time": {"value": 1, "ttl": 0},
			"negative_ttl": {"value": 1, "storedAt": ` + itoa(now) + `, "ttl": -5},
			"not_an_object": 42
		}`
		require.NoError(t, durable.Save(context.Background(), []byte(blob)))

		c := newCache(t, cache.WithDurableTier(durable))
		require.Equal(t, []string{"good"}, c.Stats().Keys)
	})

	t.Run("malformed blob means no data", func(t *testing.T) {
		t.Parallel()

		durable := tier.NewMemory()
		require.NoError(t, durable.Save(context.Background(), []byte(`not json`)))

		c := newCache(t, cache.WithDurableTier(durable))
		require.Zero(t, c.Stats().Count)
	})

	t.Run("newer record wins across tiers", func(t *testing.T) {
		t.Parallel()

		session, durable := tier.NewMemory(), tier.NewMemory()
		now := time.Now()
		ctx := context.Background()
		require.NoError(t, session.Save(ctx, []byte(`{"k":{"value":"session","storedAt":`+itoa(now.UnixMilli())+`,"ttl":0}}`)))
		require.NoError(t, durable.Save(ctx, []byte(`{"k":{"value":"durable","storedAt":`+itoa(now.Add(-time.Hour).UnixMilli())+`,"ttl":0}}`)))

		c := newCache(t, cache.WithSessionTier(session), cache.WithDurableTier(durable))
		v, ok := cache.Get[string](c, "k")
		require.True(t, ok)
		require.Equal(t, "session", v)
	})

	t.Run("invalidate rewrites the tier", func(t *testing.T) {
		t.Parallel()

		durable := tier.NewMemory()
		c := newCache(t, cache.WithDurableTier(durable))
		ctx := context.Background()

		require.NoError(t, cache.Set(ctx, c, "a", 1, cache.Config{Strategy: cache.ProcessDurable}))
		require.NoError(t, cache.Set(ctx, c, "b", 2, cache.Config{Strategy: cache.ProcessDurable}))
		c.Invalidate(ctx, "a")

		require.Equal(t, []string{"b"}, keysOf(readBlob(t, durable)))

		_, err := c.InvalidatePattern(ctx, "^b$")
		require.NoError(t, err)
		require.Empty(t, readBlob(t, durable))
	})

	t.Run("clear removes both blobs", func(t *testing.T) {
		t.Parallel()

		session, durable := tier.NewMemory(), tier.NewMemory()
		c := newCache(t, cache.WithSessionTier(session), cache.WithDurableTier(durable))
		ctx := context.Background()

		require.NoError(t, cache.Set(ctx, c, "s", 1, cache.Config{Strategy: cache.SessionDurable}))
		require.NoError(t, cache.Set(ctx, c, "d", 2, cache.Config{Strategy: cache.ProcessDurable}))
		c.Clear(ctx)

		_, err := session.Load(ctx)
		require.ErrorIs(t, err, tier.ErrNotFound)
		_, err = durable.Load(ctx)
		require.ErrorIs(t, err, tier.ErrNotFound)
	})

	t.Run("store racing clear stays mirrored", func(t *testing.T) {
		t.Parallel()

		durable := &gatedTier{Memory: tier.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
		c := newCache(t, cache.WithDurableTier(durable))
		ctx := context.Background()

		cleared := make(chan struct{})
		go func() {
			defer close(cleared)
			c.Clear(ctx)
		}()
		<-durable.entered

		stored := make(chan struct{})
		go func() {
			defer close(stored)
			_ = cache.Set(ctx, c, "k", 1, cache.Config{Strategy: cache.ProcessDurable})
		}()

		select {
		case <-stored:
			t.Fatal("store mirrored while clear was removing blobs")
		case <-time.After(20 * time.Millisecond):
		}

		close(durable.release)
		<-cleared
		<-stored

		require.Equal(t, []string{"k"}, keysOf(readBlob(t, durable)))
	})

	t.Run("sub-millisecond ttl is persisted as one millisecond", func(t *testing.T) {
		t.Parallel()

		durable := tier.NewMemory()
		c := newCache(t, cache.WithDurableTier(durable))

		require.NoError(t, cache.Set(context.Background(), c, "k", 1,
			cache.Config{TTL: 500 * time.Microsecond, Strategy: cache.ProcessDurable}))
		require.Equal(t, int64(1), readBlob(t, durable)["k"].TTL)
	})

	t.Run("expired durable entry read re-mirrors", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		durable := tier.NewMemory()
		c := newCache(t, cache.WithDurableTier(durable), cache.WithClock(clock.Now))
		ctx := context.Background()

		require.NoError(t, cache.Set(ctx, c, "k", 1, cache.Config{TTL: time.Second, Strategy: cache.ProcessDurable}))
		clock.Advance(time.Second)

		_, ok := c.Lookup("k")
		require.False(t, ok)
		require.Empty(t, readBlob(t, durable))
	})

	t.Run("tier failures are swallowed", func(t *testing.T) {
		t.Parallel()

		c := newCache(t, cache.WithSessionTier(failingTier{}), cache.WithDurableTier(failingTier{}))
		ctx := context.Background()

		require.NoError(t, cache.Set(ctx, c, "k", 1, cache.Config{Strategy: cache.ProcessDurable}))
		v, ok := cache.Get[int](c, "k")
		require.True(t, ok)
		require.Equal(t, 1, v)

		c.Invalidate(ctx, "k")
		c.Clear(ctx)
	})

	t.Run("durable strategy without tier stays in memory", func(t *testing.T) {
		t.Parallel()

		c := newCache(t)
		require.NoError(t, cache.Set(context.Background(), c, "k", 1, cache.Config{Strategy: cache.SessionDurable}))

		v, ok := cache.Get[int](c, "k")
		require.True(t, ok)
		require.Equal(t, 1, v)
	})

	t.Run("no writes after close", func(t *testing.T) {
		t.Parallel()

		durable := tier.NewMemory()
		c := cache.New(context.Background(), cache.WithDurableTier(durable))
		require.NoError(t, cache.Set(context.Background(), c, "a", 1, cache.Config{Strategy: cache.ProcessDurable}))
		require.NoError(t, c.Close())

		require.NoError(t, cache.Set(context.Background(), c, "b", 2, cache.Config{Strategy: cache.ProcessDurable}))
		require.Equal(t, []string{"a"}, keysOf(readBlob(t, durable)))
	})
}

// gatedTier blocks the first Remove until release is closed.
type gatedTier struct {
	*tier.Memory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedTier) Remove(ctx context.Context) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Memory.Remove(ctx)
}

func keysOf(blob map[string]blobRecord) []string {
	keys := make([]string, 0, len(blob))
	for k := range blob {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
