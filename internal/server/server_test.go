package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/refcache/internal/server"
	"github.com/dmitrymomot/refcache/pkg/cache"
	"github.com/dmitrymomot/refcache/pkg/refdata"
	"github.com/dmitrymomot/refcache/pkg/refdata/filesource"
)

func fixture() filesource.Fixture {
	return filesource.Fixture{
		BusinessInfo: refdata.BusinessInfo{Name: "Acme", Currency: "EUR", Timezone: "Europe/Berlin"},
		Warehouses:   []refdata.Warehouse{{ID: "w1", Name: "Main", Active: true}},
		Variants: []refdata.Variant{
			{ID: "5", ProductID: "p1", SKU: "SKU-5", Name: "Bolt M5"},
			{ID: "6", ProductID: "p1", SKU: "SKU-6", Name: "Bolt M6"},
		},
		Suppliers:         []refdata.Supplier{{ID: "s1", Name: "Fasteners Ltd"}},
		Users:             []refdata.User{{ID: "u1", Name: "Ann", Email: "ann@example.com", Role: "admin"}},
		Prices:            []refdata.Price{{VariantID: "5", SupplierID: "s1", Currency: "EUR", Amount: 120}},
		ExpenseCategories: []refdata.ExpenseCategory{{ID: "e1", Name: "Rent"}},
	}
}

type panickingSource struct {
	refdata.Source
}

func (panickingSource) Suppliers(context.Context) ([]refdata.Supplier, error) {
	panic("supplier feed corrupted")
}

type env struct {
	cache   *cache.Cache
	handler http.Handler
	srv     *server.Server
}

func newEnv(t *testing.T, src refdata.Source, opts ...server.Option) env {
	t.Helper()

	if src == nil {
		src = filesource.New(fixture())
	}
	c := cache.New(context.Background())
	t.Cleanup(func() { _ = c.Close() })

	svc, err := refdata.NewService(c, src)
	require.NoError(t, err)

	srv := server.New(svc, opts...)
	return env{cache: c, handler: srv.Handler(), srv: srv}
}

func (e env) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAPI(t *testing.T) {
	t.Parallel()

	t.Run("list is served and cached", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil)

		rec := e.do(t, http.MethodGet, "/api/variants", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, decode[[]refdata.Variant](t, rec), 2)

		_, ok := e.cache.Lookup(refdata.VariantsKey.Name())
		require.True(t, ok)
	})

	t.Run("single item by id", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil)

		rec := e.do(t, http.MethodGet, "/api/variants/5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "SKU-5", decode[refdata.Variant](t, rec).SKU)

		rec = e.do(t, http.MethodGet, "/api/variants/5/prices", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, decode[[]refdata.Price](t, rec), 1)
	})

	t.Run("reserved id is a bad request", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil)

		rec := e.do(t, http.MethodGet, "/api/variants", "")
		require.Equal(t, http.StatusOK, rec.Code)

		for _, path := range []string{"/api/variants/all", "/api/users/all", "/api/variants/all/prices"} {
			rec = e.do(t, http.MethodGet, path, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, path)
		}

		_, ok := e.cache.Lookup(refdata.VariantsKey.Name())
		require.True(t, ok, "variants list must stay cached")
	})

	t.Run("unknown id is 404 with request id", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil)

		rec := e.do(t, http.MethodGet, "/api/users/nobody", "", "X-Request-ID", "req-42")
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

		body := decode[map[string]string](t, rec)
		require.Equal(t, "req-42", body["request_id"])
		require.Equal(t, "not found", body["error"])
	})

	t.Run("request id is generated", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil)

		rec := e.do(t, http.MethodGet, "/api/business-info", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		require.Equal(t, "Acme", decode[refdata.BusinessInfo](t, rec).Name)
	})

	t.Run("producer panic is a bad gateway", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, panickingSource{Source: filesource.New(fixture())})

		rec := e.do(t, http.MethodGet, "/api/suppliers", "")
		require.Equal(t, http.StatusBadGateway, rec.Code)

		rec = e.do(t, http.MethodGet, "/api/warehouses", "")
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAdmin(t *testing.T) {
	t.Parallel()

	t.Run("invalidate pattern", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil)

		e.do(t, http.MethodGet, "/api/variants", "")
		e.do(t, http.MethodGet, "/api/variants/5", "")
		e.do(t, http.MethodGet, "/api/users", "")

		rec := e.do(t, http.MethodPost, "/admin/cache/invalidate", `{"pattern":"^variants_"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 2, decode[map[string]int](t, rec)["removed"])
		require.Equal(t, []string{"users_all"}, e.cache.Stats().Keys)
	})

	t.Run("invalidate key", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil)

		e.do(t, http.MethodGet, "/api/business-info", "")
		rec := e.do(t, http.MethodPost, "/admin/cache/invalidate", `{"key":"business_info"}`)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Zero(t, e.cache.Stats().Count)
	})

	t.Run("invalidate rejects bad input", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil)

		for _, body := range []string{
			`{}`,
			`{"key":"a","pattern":"b"}`,
			`{"pattern":"("}`,
			`{"keys":["a"]}`,
			`not json`,
		} {
			rec := e.do(t, http.MethodPost, "/admin/cache/invalidate", body)
			require.Equal(t, http.StatusBadRequest, rec.Code, body)
		}
	})

	t.Run("clear and stats", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil)

		e.do(t, http.MethodGet, "/api/warehouses", "")
		rec := e.do(t, http.MethodGet, "/admin/cache/stats", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, decode[cache.Stats](t, rec).Count)

		rec = e.do(t, http.MethodDelete, "/admin/cache/", "")
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Zero(t, e.cache.Stats().Count)
	})

	t.Run("warm", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil)

		rec := e.do(t, http.MethodPost, "/admin/cache/warm", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 6, e.cache.Stats().Count)
	})

	t.Run("presets", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil)

		rec := e.do(t, http.MethodGet, "/admin/cache/presets", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Presets []map[string]string  `json:"presets"`
			Keys    []refdata.Descriptor `json:"keys"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Presets, 3)
		require.Equal(t, "static", body.Presets[0]["name"])
		require.Equal(t, "durable", body.Presets[0]["strategy"])
		require.Len(t, body.Keys, len(refdata.Descriptors()))
	})

	t.Run("token required", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, nil, server.WithAdminToken("s3cret"))

		rec := e.do(t, http.MethodGet, "/admin/cache/stats", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = e.do(t, http.MethodGet, "/admin/cache/stats", "", "Authorization", "Bearer wrong")
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = e.do(t, http.MethodGet, "/admin/cache/stats", "", "Authorization", "Bearer s3cret")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = e.do(t, http.MethodGet, "/api/warehouses", "")
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "refcache_test_total", Help: "test"}))

	e := newEnv(t, nil,
		server.WithMetrics(reg),
		server.WithReadinessCheck("upstream", func(context.Context) error { return errors.New("down") }),
	)

	rec := e.do(t, http.MethodGet, "/health/live", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = e.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "refcache_test_total")
}

func TestEvents(t *testing.T) {
	t.Parallel()

	e := newEnv(t, nil, server.WithHeartbeat(50*time.Millisecond))
	ts := httptest.NewServer(e.handler)
	t.Cleanup(ts.Close)
	t.Cleanup(e.srv.CloseStreams)

	resp, err := http.Get(ts.URL + "/admin/cache/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The subscription exists once headers are flushed.
	e.cache.Store(context.Background(), "business_info", []byte(`{}`), cache.Config{})
	e.cache.Clear(context.Background())

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	var got []string
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream ended early")
			if name, found := strings.CutPrefix(line, "event: "); found {
				got = append(got, name)
			}
		case <-timeout:
			t.Fatalf("events received: %v", got)
		}
	}
	require.Equal(t, []string{"set", "clear"}, got)
}
