package db

import "time"

// Config holds the PostgreSQL settings used by the durable tier and the job queue.
type Config struct {
	// ConnectionString is a postgres:// URL.
	ConnectionString string `env:"DATABASE_URL"`

	// MigrationsTable tracks applied goose migrations.
	MigrationsTable string `env:"DATABASE_MIGRATIONS_TABLE" envDefault:"refcache_migrations"`

	HealthCheckPeriod time.Duration `env:"DATABASE_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" envDefault:"30m"`

	// Startup retries back off linearly: attempt i waits i*RetryInterval.
	RetryAttempts int           `env:"DATABASE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"DATABASE_RETRY_INTERVAL" envDefault:"2s"`

	// The cache writes one row per tier, so a small pool is plenty.
	MaxOpenConns int32 `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"4"`
	MinConns     int32 `env:"DATABASE_MIN_CONNS" envDefault:"1"`
}
