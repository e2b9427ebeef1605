package tier

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migrations holds the goose migrations creating the refcache_tiers table.
// Apply them with db.Migrate before using a Postgres tier.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the SQL files.
const MigrationsDir = "migrations"

const (
	loadBlobQuery   = `SELECT data FROM refcache_tiers WHERE name = $1`
	saveBlobQuery   = `INSERT INTO refcache_tiers (name, data, updated_at) VALUES ($1, $2, NOW()) ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	removeBlobQuery = `DELETE FROM refcache_tiers WHERE name = $1`
)

// DB is the subset of *pgxpool.Pool used by the Postgres tier.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores the blob as one row of the refcache_tiers table.
type Postgres struct {
	db   DB
	name string
}

// NewPostgres returns a tier that keeps the blob in the row identified by name.
func NewPostgres(db DB, name string) *Postgres {
	return &Postgres{db: db, name: name}
}

// Load returns the stored blob.
func (p *Postgres) Load(ctx context.Context) ([]byte, error) {
	if err := p.check(); err != nil {
		return nil, err
	}

	var data []byte
	if err := p.db.QueryRow(ctx, loadBlobQuery, p.name).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return data, nil
}

// Save upserts the blob.
func (p *Postgres) Save(ctx context.Context, data []byte) error {
	if err := p.check(); err != nil {
		return err
	}

	if _, err := p.db.Exec(ctx, saveBlobQuery, p.name, data); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

// Remove deletes the row.
func (p *Postgres) Remove(ctx context.Context) error {
	if err := p.check(); err != nil {
		return err
	}

	if _, err := p.db.Exec(ctx, removeBlobQuery, p.name); err != nil {
		return fmt.Errorf("%w: %v", ErrRemoveFailed, err)
	}
	return nil
}

func (p *Postgres) check() error {
	if p.db == nil {
		return ErrNilClient
	}
	if p.name == "" {
		return ErrEmptyName
	}
	return nil
}
