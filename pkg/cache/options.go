package cache

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmitrymomot/refcache/pkg/cache"

// Tier persists the serialized entries of one durability tier as a single blob.
//
// Implementations live in pkg/tier. Load returns an error when no blob is
// stored; the cache treats any Load error as "no data".
type Tier interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Remove(ctx context.Context) error
}

// Option configures the cache.
type Option func(*options)

type options struct {
	tiers           [len(strategyNames)]Tier
	logger          *slog.Logger
	metrics         *Metrics
	tracer          trace.Tracer
	now             func() time.Time
	cleanupInterval time.Duration
	persistTimeout  time.Duration
}

func defaultOptions() *options {
	return &options{
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:         otel.GetTracerProvider().Tracer(tracerName),
		now:            time.Now,
		persistTimeout: 5 * time.Second,
	}
}

// WithSessionTier sets the backend for SessionDurable entries.
// Without it, session entries are kept in memory only.
func WithSessionTier(t Tier) Option {
	return func(o *options) {
		o.tiers[SessionDurable] = t
	}
}

// WithDurableTier sets the backend for ProcessDurable entries.
// Without it, durable entries are kept in memory only.
func WithDurableTier(t Tier) Option {
	return func(o *options) {
		o.tiers[ProcessDurable] = t
	}
}

// WithLogger sets the logger used to report swallowed persistence errors
// and recovered subscriber panics.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracerProvider sets the provider used for load spans.
// Default: the global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCleanupInterval starts a background janitor that purges expired
// entries at the given interval. Zero disables it; expired entries are then
// only removed when read.
// Default: 0.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) {
		o.cleanupInterval = d
	}
}

// WithPersistTimeout bounds each tier read and write.
// Default: 5 seconds.
func WithPersistTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.persistTimeout = d
		}
	}
}
