package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/audit"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/membership"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/qrtoken"
)

// ErrNoDatabase is returned by operations that need Postgres when no
// database URL is configured.
var ErrNoDatabase = errors.New("app: BENEFICIOS_DATABASE_URL is not set")

// Stores groups the persistence backends. Without a database URL every
// store is in-memory.
type Stores struct {
	Pool *pgxpool.Pool

	Memberships membership.Store
	Tokens      qrtoken.Store
	Directory   identity.Directory
	Audit       audit.Recorder
}

// DBEnabled reports whether the stores are Postgres-backed.
func (s *Stores) DBEnabled() bool { return s != nil && s.Pool != nil }

// Close releases the pool. The app owns the pool; stores never close it.
func (s *Stores) Close() {
	if s != nil && s.Pool != nil {
		s.Pool.Close()
	}
}

// OpenStores decides between Postgres-backed persistence and in-memory dev stores.
func OpenStores(ctx context.Context, cfg Config, log Logger) (*Stores, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return &Stores{
			Memberships: membership.NewMemoryStore(),
			Tokens:      qrtoken.NewMemoryStore(),
			Directory:   identity.NewMemoryStore(),
			Audit:       audit.NewMemoryRecorder(0),
		}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	st, err := postgresStores(pool, cfg.DBSchema)
	if err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	return st, nil
}

// OpenDBStores is OpenStores for commands that must not fall back to memory.
func OpenDBStores(ctx context.Context, cfg Config, log Logger) (*Stores, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrNoDatabase
	}
	return OpenStores(ctx, cfg, log)
}

func postgresStores(pool *pgxpool.Pool, schema string) (*Stores, error) {
	members, err := membership.NewPostgresStore(pool, membership.WithSchema(schema))
	if err != nil {
		return nil, err
	}
	tokens, err := qrtoken.NewPostgresStore(pool, qrtoken.WithSchema(schema))
	if err != nil {
		return nil, err
	}
	directory, err := identity.NewPostgresStore(pool, identity.WithSchema(schema))
	if err != nil {
		return nil, err
	}
	recorder, err := audit.NewPostgresRecorder(pool, schema)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Pool:        pool,
		Memberships: members,
		Tokens:      tokens,
		Directory:   directory,
		Audit:       recorder,
	}, nil
}
