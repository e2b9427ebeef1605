// Command refcached serves cached reference data over HTTP.
//
// Configuration comes from the environment; see internal/config.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/refcache/internal/config"
	"github.com/dmitrymomot/refcache/internal/server"
	"github.com/dmitrymomot/refcache/internal/tasks"
	"github.com/dmitrymomot/refcache/pkg/cache"
	"github.com/dmitrymomot/refcache/pkg/db"
	"github.com/dmitrymomot/refcache/pkg/health"
	"github.com/dmitrymomot/refcache/pkg/job"
	"github.com/dmitrymomot/refcache/pkg/logger"
	"github.com/dmitrymomot/refcache/pkg/redis"
	"github.com/dmitrymomot/refcache/pkg/refdata"
	"github.com/dmitrymomot/refcache/pkg/refdata/filesource"
	"github.com/dmitrymomot/refcache/pkg/refdata/httpsource"
	"github.com/dmitrymomot/refcache/pkg/tier"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "refcached:", err)
		os.Exit(1)
	}
}

// app collects what run builds so it can be torn down in reverse order.
type app struct {
	log      *slog.Logger
	pool     *pgxpool.Pool
	closers  []func(context.Context) error
	checks   []server.Option
	startups []func(context.Context) error
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func (a *app) check(name string, fn health.CheckFunc) {
	a.checks = append(a.checks, server.WithReadinessCheck(name, fn))
}

// shutdownHooks returns the closers, last acquired first.
func (a *app) shutdownHooks() []func(context.Context) error {
	hooks := slices.Clone(a.closers)
	slices.Reverse(hooks)
	return hooks
}

func (a *app) abort() {
	for _, hook := range a.shutdownHooks() {
		_ = hook(context.Background())
	}
}

func run(ctx context.Context) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, flush, err := logger.New(cfg.Log,
		logger.RequestIDExtractor(),
		logger.Static(slog.String("session_id", cfg.Cache.SessionID)),
	)
	if err != nil {
		return err
	}
	defer flush()

	a := &app{log: log}
	defer func() {
		if err != nil {
			a.abort()
		}
	}()

	src, err := openSource(a, cfg.Upstream)
	if err != nil {
		return err
	}

	if cfg.NeedsPostgres() {
		if err := openPostgres(ctx, a, cfg); err != nil {
			return err
		}
	}

	cacheOpts, err := openTiers(ctx, a, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cacheOpts = append(cacheOpts,
		cache.WithLogger(log),
		cache.WithMetrics(cache.NewMetrics(reg)),
		cache.WithPersistTimeout(cfg.Cache.PersistTimeout),
	)
	// Without Postgres there is no job queue, so the in-process janitor
	// sweeps expired entries instead of the scheduled purge.
	if a.pool == nil {
		cacheOpts = append(cacheOpts, cache.WithCleanupInterval(cfg.Cache.CleanupInterval))
	}

	c := cache.New(ctx, cacheOpts...)
	a.onClose(func(context.Context) error { return c.Close() })
	log.InfoContext(ctx, "cache ready", slog.Int("entries", c.Stats().Count))

	svc, err := refdata.NewService(c, src, refdata.WithLogger(log))
	if err != nil {
		return err
	}

	if err := scheduleJobs(a, cfg, svc, c); err != nil {
		return err
	}

	srv := server.New(svc, append(a.checks,
		server.WithLogger(log),
		server.WithMetrics(reg),
		server.WithAdminToken(cfg.AdminToken),
	)...)

	// From here on Run owns the shutdown hooks.
	hooks := a.shutdownHooks()
	a.closers = nil

	return server.Run(ctx, server.RunConfig{
		Handler:         srv.Handler(),
		Logger:          log,
		Address:         cfg.HTTPAddr,
		ShutdownTimeout: cfg.ShutdownTimeout,
		StartupHooks:    a.startups,
		ShutdownHooks:   hooks,
		OnShutdown:      []func(){srv.CloseStreams},
	})
}

func openSource(a *app, cfg config.Upstream) (refdata.Source, error) {
	if cfg.URL != "" {
		opts := []httpsource.Option{
			httpsource.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			httpsource.WithRateLimit(cfg.RPS, cfg.Burst),
		}
		if cfg.Token != "" {
			opts = append(opts, httpsource.WithHeader("Authorization", "Bearer "+cfg.Token))
		}
		client, err := httpsource.New(cfg.URL, opts...)
		if err != nil {
			return nil, err
		}
		a.check("upstream", client.Healthcheck)
		return client, nil
	}

	src, err := filesource.Open(cfg.FixturePath)
	if err != nil {
		return nil, err
	}
	a.log.Info("serving reference data from fixture", slog.String("path", cfg.FixturePath))
	return src, nil
}

func openPostgres(ctx context.Context, a *app, cfg config.Config) error {
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	a.pool = pool
	a.onClose(db.Shutdown(pool))
	a.check("postgres", db.Healthcheck(pool))

	if err := db.Migrate(ctx, pool, tier.Migrations, tier.MigrationsDir, cfg.DB.MigrationsTable, a.log); err != nil {
		return err
	}
	return job.Migrate(ctx, pool, a.log)
}

func openTiers(ctx context.Context, a *app, cfg config.Config) ([]cache.Option, error) {
	var opts []cache.Option

	if cfg.Cache.SessionTier == config.SessionFile || cfg.Cache.DurableTier == config.DurableFile {
		if err := os.MkdirAll(cfg.Cache.FileDir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	switch cfg.Cache.SessionTier {
	case config.SessionMemory:
		opts = append(opts, cache.WithSessionTier(tier.NewMemory()))
	case config.SessionFile:
		path := filepath.Join(cfg.Cache.FileDir, "session-"+cfg.Cache.SessionID+".json")
		opts = append(opts, cache.WithSessionTier(tier.NewFile(path)))
	case config.SessionRedis:
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.onClose(redis.Shutdown(client))
		a.check("redis", redis.Healthcheck(client))
		opts = append(opts, cache.WithSessionTier(
			tier.NewRedis(client, "refcache:session:"+cfg.Cache.SessionID, tier.WithExpiry(cfg.Cache.SessionTTL)),
		))
	}

	switch cfg.Cache.DurableTier {
	case config.DurableFile:
		opts = append(opts, cache.WithDurableTier(tier.NewFile(filepath.Join(cfg.Cache.FileDir, "durable.json"))))
	case config.DurablePostgres:
		opts = append(opts, cache.WithDurableTier(tier.NewPostgres(a.pool, "durable")))
	case config.DurableS3:
		s3, err := tier.NewS3(cfg.S3)
		if err != nil {
			return nil, err
		}
		opts = append(opts, cache.WithDurableTier(s3))
	}

	a.log.InfoContext(ctx, "cache tiers configured",
		slog.String("session", cfg.Cache.SessionTier),
		slog.String("durable", cfg.Cache.DurableTier),
	)
	return opts, nil
}

// scheduleJobs runs warm-up and purge on the job queue when Postgres is
// available. Otherwise warm-up only happens once at start, if enabled.
func scheduleJobs(a *app, cfg config.Config, svc *refdata.Service, c *cache.Cache) error {
	if a.pool == nil {
		if cfg.Cache.WarmOnStart {
			a.startups = append(a.startups, func(ctx context.Context) error {
				go func() {
					if err := svc.Warm(context.WithoutCancel(ctx)); err != nil {
						a.log.WarnContext(ctx, "initial warm-up failed", slog.Any("error", err))
					}
				}()
				return nil
			})
		}
		return nil
	}

	var warmOpts []job.TaskOption
	if cfg.Cache.WarmOnStart {
		warmOpts = append(warmOpts, job.RunOnStart())
	}

	m, err := job.NewManager(a.pool,
		job.WithScheduledTask(tasks.NewWarm(svc, cfg.Cache.WarmSchedule), warmOpts...),
		job.WithScheduledTask(tasks.NewPurge(c, a.log, cfg.Cache.PurgeSchedule)),
		job.WithLogger(a.log),
	)
	if err != nil {
		return err
	}

	a.startups = append(a.startups, m.Start)
	a.onClose(m.Shutdown())
	a.check("jobs", job.Healthcheck(m))
	return nil
}
