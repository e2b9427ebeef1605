// Package config loads the refcached configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"github.com/dmitrymomot/refcache/pkg/db"
	"github.com/dmitrymomot/refcache/pkg/logger"
	"github.com/dmitrymomot/refcache/pkg/redis"
	"github.com/dmitrymomot/refcache/pkg/tier"
)

// ErrInvalid is returned when the environment describes an unusable setup.
var ErrInvalid = errors.New("config: invalid")

// Session tier backends.
const (
	SessionNone   = "none"
	SessionMemory = "memory"
	SessionRedis  = "redis"
	SessionFile   = "file"
)

// Durable tier backends.
const (
	DurableNone     = "none"
	DurableFile     = "file"
	DurablePostgres = "postgres"
	DurableS3       = "s3"
)

// Config is the full daemon configuration.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// AdminToken protects /admin/cache when set.
	AdminToken string `env:"ADMIN_TOKEN"`

	Log      logger.Config
	Upstream Upstream
	Cache    Cache
	Redis    redis.Config
	DB       db.Config
	S3       tier.S3Config
}

// Upstream selects the reference-data source. URL wins over FixturePath.
type Upstream struct {
	URL         string        `env:"UPSTREAM_URL"`
	FixturePath string        `env:"FIXTURE_PATH"`
	Token       string        `env:"UPSTREAM_TOKEN"`
	RPS         float64       `env:"UPSTREAM_RPS" envDefault:"10"`
	Burst       int           `env:"UPSTREAM_BURST" envDefault:"5"`
	Timeout     time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
}

// Cache configures tiers and maintenance.
type Cache struct {
	SessionTier string `env:"SESSION_TIER" envDefault:"memory"`
	DurableTier string `env:"DURABLE_TIER" envDefault:"none"`
	FileDir     string `env:"CACHE_FILE_DIR" envDefault:"./data"`

	// SessionID scopes the session blob. Empty means a random id per process.
	SessionID  string        `env:"SESSION_ID"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	PersistTimeout  time.Duration `env:"PERSIST_TIMEOUT" envDefault:"5s"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1m"`

	// Schedules run on the job queue and need Postgres.
	WarmSchedule  string `env:"WARM_SCHEDULE" envDefault:"@every 15m"`
	PurgeSchedule string `env:"PURGE_SCHEDULE" envDefault:"*/10 * * * *"`
	WarmOnStart   bool   `env:"WARM_ON_START" envDefault:"true"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Join(ErrInvalid, err)
	}
	if cfg.Cache.SessionID == "" {
		cfg.Cache.SessionID = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NeedsPostgres reports whether any component uses the database.
func (c Config) NeedsPostgres() bool {
	return c.DB.ConnectionString != "" || c.Cache.DurableTier == DurablePostgres
}

// Validate checks cross-field constraints env tags cannot express.
func (c Config) Validate() error {
	var errs []error

	if c.Upstream.URL == "" && c.Upstream.FixturePath == "" {
		errs = append(errs, errors.New("one of UPSTREAM_URL or FIXTURE_PATH is required"))
	}

	switch c.Cache.SessionTier {
	case SessionNone, SessionMemory, SessionFile:
	case SessionRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("SESSION_TIER=redis requires REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_TIER %q", c.Cache.SessionTier))
	}

	switch c.Cache.DurableTier {
	case DurableNone, DurableFile:
	case DurablePostgres:
		if c.DB.ConnectionString == "" {
			errs = append(errs, errors.New("DURABLE_TIER=postgres requires DATABASE_URL"))
		}
	case DurableS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("DURABLE_TIER=s3 requires S3_BUCKET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DURABLE_TIER %q", c.Cache.DurableTier))
	}

	if (c.Cache.SessionTier == SessionFile || c.Cache.DurableTier == DurableFile) && c.Cache.FileDir == "" {
		errs = append(errs, errors.New("file tiers require CACHE_FILE_DIR"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalid}, errs...)...)
	}
	return nil
}
