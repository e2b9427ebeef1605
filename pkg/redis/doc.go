// Package redis opens the go-redis client used by the Redis session tier.
//
// [Open] validates the URL (redis:// or rediss://), applies pool and timeout
// settings from [Config] and pings the server, retrying with linear backoff
// so the daemon survives Redis starting a little later than it does:
//
//	client, err := redis.Open(ctx, cfg.Redis)
//	if err != nil {
//	    return err
//	}
//	sessionTier := tier.NewRedis(client, "refcache:session:"+cfg.SessionID)
//
// [Healthcheck] plugs into the readiness endpoint and [Shutdown] into the
// daemon's shutdown hooks.
package redis
