// Package server exposes the reference-data service and cache administration
// over HTTP.
package server

import (
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/refcache/pkg/cache"
	"github.com/dmitrymomot/refcache/pkg/health"
	"github.com/dmitrymomot/refcache/pkg/refdata"
)

const defaultHeartbeat = 15 * time.Second

// Server routes HTTP requests to the service.
type Server struct {
	svc        *refdata.Service
	cache      *cache.Cache
	logger     *slog.Logger
	gatherer   prometheus.Gatherer
	checks     health.Checks
	adminToken string
	heartbeat  time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithReadinessCheck adds a named check to /health/ready.
func WithReadinessCheck(name string, fn health.CheckFunc) Option {
	return func(s *Server) {
		if fn != nil {
			s.checks[name] = fn
		}
	}
}

// WithAdminToken protects /admin with a bearer token.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

// WithHeartbeat sets the keep-alive interval of the event stream.
// Default: 15 seconds.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// New returns a server for svc.
func New(svc *refdata.Service, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		cache:     svc.Cache(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		checks:    make(health.Checks),
		heartbeat: defaultHeartbeat,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, s.recoverer, s.logRequests)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(s.checks, health.WithLogger(s.logger)))
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/warehouses", s.warehouses)
		r.Get("/variants", s.variants)
		r.Get("/variants/{id}", s.variant)
		r.Get("/variants/{id}/prices", s.prices)
		r.Get("/suppliers", s.suppliers)
		r.Get("/users", s.users)
		r.Get("/users/{id}", s.user)
		r.Get("/business-info", s.businessInfo)
		r.Get("/expense-categories", s.expenseCategories)
	})

	r.Route("/admin/cache", func(r chi.Router) {
		r.Use(s.adminAuth)
		r.Get("/stats", s.stats)
		r.Get("/presets", s.presets)
		r.Post("/invalidate", s.invalidate)
		r.Post("/warm", s.warm)
		r.Delete("/", s.clear)
		r.Get("/events", s.events)
	})

	return r
}

// CloseStreams ends every open event stream. It is meant for
// RunConfig.OnShutdown.
func (s *Server) CloseStreams() {
	s.closeOnce.Do(func() { close(s.done) })
}
