// Package db opens the PostgreSQL pool that hosts the durable cache tier and
// the job queue, and applies goose migrations.
//
//	pool, err := db.Connect(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	if err := db.Migrate(ctx, pool, tier.Migrations, tier.MigrationsDir, cfg.Database.MigrationsTable, log); err != nil {
//	    return err
//	}
//
// [Healthcheck] plugs into the readiness endpoint and [Shutdown] into the
// daemon's shutdown hooks.
package db
