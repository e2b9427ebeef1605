package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpen_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty URL", func(t *testing.T) {
		t.Parallel()

		client, err := Open(ctx, Config{})
		require.ErrorIs(t, err, ErrEmptyConnectionURL)
		require.Nil(t, client)
	})

	for _, url := range []string{"http://localhost:6379", "localhost:6379", "postgresql://localhost:6379"} {
		t.Run("invalid scheme "+url, func(t *testing.T) {
			t.Parallel()

			client, err := Open(ctx, Config{URL: url})
			require.ErrorIs(t, err, ErrFailedToParseURL)
			require.Nil(t, client)
		})
	}

	t.Run("malformed URL", func(t *testing.T) {
		t.Parallel()

		_, err := Open(ctx, Config{URL: "redis://localhost:notaport"})
		require.ErrorIs(t, err, ErrFailedToParseURL)
	})

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()

		_, err := Open(ctx, Config{
			URL:           "redis://127.0.0.1:1/0",
			DialTimeout:   100 * time.Millisecond,
			RetryAttempts: 1,
		})
		require.ErrorIs(t, err, ErrConnectionFailed)
	})
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}.withDefaults()
	require.Equal(t, 10, cfg.PoolSize)
	require.Equal(t, 3*time.Second, cfg.ReadTimeout)
	require.Equal(t, 5*time.Second, cfg.DialTimeout)
	require.Equal(t, 1, cfg.RetryAttempts)

	custom := Config{PoolSize: 3, RetryAttempts: 5}.withDefaults()
	require.Equal(t, 3, custom.PoolSize)
	require.Equal(t, 5, custom.RetryAttempts)
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Healthcheck(nil)(context.Background()), ErrHealthcheckFailed)
}

type mockCloser struct {
	err    error
	closed bool
}

func (m *mockCloser) Close() error {
	m.closed = true
	return m.err
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	t.Run("closes the client", func(t *testing.T) {
		t.Parallel()

		m := &mockCloser{}
		require.NoError(t, Shutdown(m)(context.Background()))
		require.True(t, m.closed)
	})

	t.Run("propagates close error", func(t *testing.T) {
		t.Parallel()

		errClose := errors.New("close failed")
		m := &mockCloser{err: errClose}
		require.ErrorIs(t, Shutdown(m)(context.Background()), errClose)
	})
}

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("cancelled context returns immediately", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		require.ErrorIs(t, wait(ctx, 10*time.Second), context.Canceled)
		require.Less(t, time.Since(start), time.Second)
	})

	t.Run("elapses", func(t *testing.T) {
		t.Parallel()

		start := time.Now()
		require.NoError(t, wait(context.Background(), 20*time.Millisecond))
		require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})
}
