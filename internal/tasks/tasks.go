// Package tasks holds the periodic maintenance jobs of refcached.
package tasks

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/refcache/pkg/cache"
	"github.com/dmitrymomot/refcache/pkg/refdata"
)

// Warm preloads reference data so the first requests after a restart or
// an expiry wave are served from memory.
type Warm struct {
	svc      *refdata.Service
	schedule string
}

// NewWarm returns the warm-up task.
func NewWarm(svc *refdata.Service, schedule string) *Warm {
	return &Warm{svc: svc, schedule: schedule}
}

func (t *Warm) Name() string     { return "refdata.warm" }
func (t *Warm) Schedule() string { return t.schedule }

func (t *Warm) Handle(ctx context.Context) error {
	return t.svc.Warm(ctx)
}

// Purge evicts expired entries and rewrites the tiers they lived in.
type Purge struct {
	cache    *cache.Cache
	logger   *slog.Logger
	schedule string
}

// NewPurge returns the expiry sweep task.
func NewPurge(c *cache.Cache, logger *slog.Logger, schedule string) *Purge {
	return &Purge{cache: c, logger: logger, schedule: schedule}
}

func (t *Purge) Name() string     { return "refcache.purge" }
func (t *Purge) Schedule() string { return t.schedule }

func (t *Purge) Handle(ctx context.Context) error {
	if n := t.cache.PurgeExpired(ctx); n > 0 && t.logger != nil {
		t.logger.InfoContext(ctx, "expired cache entries purged", slog.Int("removed", n))
	}
	return nil
}
