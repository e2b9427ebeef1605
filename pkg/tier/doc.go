// Package tier provides durability backends for the cache.
//
// Each backend stores exactly one blob (the serialized entries of one cache
// strategy) and satisfies cache.Tier:
//
//	Load(ctx) ([]byte, error)
//	Save(ctx, data) error
//	Remove(ctx) error
//
// Load returns [ErrNotFound] when nothing has been saved. Remove of a missing
// blob is not an error.
//
// Available backends:
//
//   - [Memory]: process memory, for tests and for a session tier that must not
//     outlive the process.
//   - [File]: a single file written atomically (temp file + rename).
//   - [Redis]: a single key with an optional expiry, suited to session data.
//   - [Postgres]: one row in the refcache_tiers table (see [Migrations]).
//   - [S3]: one object in an S3-compatible bucket.
//
// Typical wiring:
//
//	c := cache.New(ctx,
//	    cache.WithSessionTier(tier.NewRedis(client, "refcache:session:"+sessionID, tier.WithExpiry(12*time.Hour))),
//	    cache.WithDurableTier(tier.NewPostgres(pool, "durable")),
//	)
package tier
