// Package job runs periodic maintenance tasks on River, the Postgres-backed
// job queue.
//
// Tasks are plain structs with Name, Schedule and Handle methods; no
// interface import is needed:
//
//	type Warm struct{ svc *refdata.Service }
//
//	func (t *Warm) Name() string                     { return "refdata.warm" }
//	func (t *Warm) Schedule() string                 { return "@every 15m" }
//	func (t *Warm) Handle(ctx context.Context) error { return t.svc.Warm(ctx) }
//
//	if err := job.Migrate(ctx, pool, logger); err != nil {
//	    return err
//	}
//	m, err := job.NewManager(pool,
//	    job.WithScheduledTask(&Warm{svc: svc}, job.RunOnStart()),
//	    job.WithLogger(logger),
//	)
//	if err := m.Start(ctx); err != nil {
//	    return err
//	}
//	defer m.Stop(context.Background())
//
// Schedules are standard 5-field cron expressions or descriptors such as
// "@hourly" and "@every 10m". A failed task is retried by River with
// backoff. [Healthcheck] plugs into readiness probes.
package job
