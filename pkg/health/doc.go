// Package health serves liveness and readiness probes.
//
// Liveness only tells that the process runs. Readiness runs every registered
// check concurrently under one timeout:
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "redis": redis.Healthcheck(client),
//	    "postgres": db.Healthcheck(pool),
//	}, health.WithTimeout(2*time.Second)))
//
// Responses are plain text unless the client asks for JSON with
// ?format=json or an Accept header.
package health
