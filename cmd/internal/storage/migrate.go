package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/storage/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// gooseUpContext and gooseStatusContext are seams for tests.
var (
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return goose.UpContext(ctx, db, dir, opts...)
	}
	gooseStatusContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return goose.StatusContext(ctx, db, dir, opts...)
	}
)

// OpenSQL opens a database/sql handle over the pgx driver. goose needs
// database/sql; the runtime stores use pgxpool.
func OpenSQL(databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("storage: empty database url")
	}
	return sql.Open("pgx", databaseURL)
}

func configureGoose() error {
	goose.SetBaseFS(migrations.FS)
	return goose.SetDialect("pgx")
}

// MigrateUp applies every pending embedded migration.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	if err := configureGoose(); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// MigrateStatus prints the applied/pending state of each embedded migration
// through goose's logger.
func MigrateStatus(ctx context.Context, db *sql.DB) error {
	if err := configureGoose(); err != nil {
		return err
	}
	return gooseStatusContext(ctx, db, ".")
}
