// Package storagetest provides opt-in Postgres fixtures for integration tests.
//
// Tests run only when BENEFICIOS_DATABASE_URL is set. Each test gets a fresh
// schema with the embedded migrations applied, dropped on cleanup.
package storagetest

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity/ids"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/storage"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/storage/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnvDatabaseURL enables integration tests.
const EnvDatabaseURL = "BENEFICIOS_DATABASE_URL"

// OpenPool connects to the integration database or skips the test.
func OpenPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv(EnvDatabaseURL))
	if raw == "" {
		t.Skip("integration test skipped: " + EnvDatabaseURL + " is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse %s: %v", EnvDatabaseURL, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()
	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if unreachable(err) && os.Getenv("CI") == "" {
			t.Skipf("integration test skipped: Postgres unreachable: %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	t.Cleanup(pool.Close)
	return pool
}

// NewSchema creates an isolated schema, applies the migrations into it and
// registers its removal.
func NewSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	id, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	schema := "bnf_it_" + strings.ToLower(id)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	quoted := pgx.Identifier{schema}.Sanitize()
	if _, err := pool.Exec(ctx, `CREATE SCHEMA `+quoted); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+quoted+` CASCADE`)
	})

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer conn.Release()

	// search_path is connection state; reset it before the conn goes back to the pool.
	if _, err := conn.Exec(ctx, `SET search_path TO `+quoted); err != nil {
		t.Fatalf("set search_path: %v", err)
	}
	defer func() { _, _ = conn.Exec(context.Background(), `RESET search_path`) }()

	for _, up := range upSections(t) {
		if _, err := conn.Exec(ctx, up); err != nil {
			t.Fatalf("apply migration: %v", err)
		}
	}
	return schema
}

// DropTable removes a table from schema so tests can exercise the
// not-provisioned paths.
func DropTable(t *testing.T, pool *pgxpool.Pool, schema, table string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS `+storage.Table(schema, table)+` CASCADE`); err != nil {
		t.Fatalf("drop table %s: %v", table, err)
	}
}

func upSections(t *testing.T) []string {
	t.Helper()

	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		up, _, _ := strings.Cut(string(b), "-- +goose Down")
		out = append(out, up)
	}
	return out
}

func unreachable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
