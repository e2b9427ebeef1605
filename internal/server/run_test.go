package server_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/refcache/internal/server"
)

type hookLog struct {
	calls []string
	mu    sync.Mutex
}

func (h *hookLog) hook(name string, err error) func(context.Context) error {
	return func(context.Context) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.calls = append(h.calls, name)
		return err
	}
}

func (h *hookLog) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("graceful shutdown runs hooks in order", func(t *testing.T) {
		t.Parallel()

		var hooks hookLog
		ctx, cancel := context.WithCancel(context.Background())
		streamsClosed := make(chan struct{})

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Run(ctx, server.RunConfig{
				Handler:       http.NotFoundHandler(),
				Address:       "127.0.0.1:0",
				StartupHooks:  []func(context.Context) error{hooks.hook("start", nil)},
				ShutdownHooks: []func(context.Context) error{hooks.hook("jobs", nil), hooks.hook("cache", nil)},
				OnShutdown:    []func(){func() { close(streamsClosed) }},
			})
		}()

		require.Eventually(t, func() bool { return len(hooks.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return")
		}
		require.Equal(t, []string{"start", "jobs", "cache"}, hooks.snapshot())
		<-streamsClosed
	})

	t.Run("failed startup still runs shutdown hooks", func(t *testing.T) {
		t.Parallel()

		var hooks hookLog
		errMigrate := errors.New("migrate failed")
		errClose := errors.New("close failed")

		err := server.Run(context.Background(), server.RunConfig{
			Handler:       http.NotFoundHandler(),
			Address:       "127.0.0.1:0",
			StartupHooks:  []func(context.Context) error{hooks.hook("start", errMigrate)},
			ShutdownHooks: []func(context.Context) error{hooks.hook("db", errClose)},
		})
		require.ErrorIs(t, err, errMigrate)
		require.ErrorIs(t, err, errClose)
		require.Equal(t, []string{"start", "db"}, hooks.snapshot())
	})
}
