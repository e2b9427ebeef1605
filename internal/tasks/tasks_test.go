package tasks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/refcache/internal/tasks"
	"github.com/dmitrymomot/refcache/pkg/cache"
	"github.com/dmitrymomot/refcache/pkg/refdata"
	"github.com/dmitrymomot/refcache/pkg/refdata/filesource"
)

func TestWarm(t *testing.T) {
	t.Parallel()

	c := cache.New(context.Background())
	t.Cleanup(func() { _ = c.Close() })

	svc, err := refdata.NewService(c, filesource.New(filesource.Fixture{
		BusinessInfo: refdata.BusinessInfo{Name: "Acme"},
	}))
	require.NoError(t, err)

	task := tasks.NewWarm(svc, "@every 15m")
	require.Equal(t, "refdata.warm", task.Name())
	require.Equal(t, "@every 15m", task.Schedule())

	require.NoError(t, task.Handle(context.Background()))
	info, ok := refdata.BusinessInfoKey.Get(c)
	require.True(t, ok)
	require.Equal(t, "Acme", info.Name)
}

func TestPurge(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := cache.New(context.Background(), cache.WithClock(func() time.Time { return now }))
	t.Cleanup(func() { _ = c.Close() })

	c.Store(context.Background(), "users_all", []byte(`[]`), cache.Config{TTL: time.Minute})
	c.Store(context.Background(), "business_info", []byte(`{}`), cache.Config{})

	now = now.Add(2 * time.Minute)

	task := tasks.NewPurge(c, nil, "*/10 * * * *")
	require.Equal(t, "refcache.purge", task.Name())
	require.NoError(t, task.Handle(context.Background()))
	require.Equal(t, []string{"business_info"}, c.Stats().Keys)
}
