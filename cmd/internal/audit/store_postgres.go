package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity/ids"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder appends events to the verifications table.
type PostgresRecorder struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPostgresRecorder constructs a PostgresRecorder in schema (default "public").
func NewPostgresRecorder(pool *pgxpool.Pool, schema string) (*PostgresRecorder, error) {
	if pool == nil {
		return nil, errors.New("audit: nil pool")
	}
	if schema == "" {
		schema = storage.DefaultSchema
	}
	normalized, err := storage.NormalizeSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	return &PostgresRecorder{pool: pool, schema: normalized}, nil
}

// Record implements Recorder.
func (r *PostgresRecorder) Record(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		id, err := ids.NewULID(ev.CreatedAt)
		if err != nil {
			return err
		}
		ev.ID = id
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO `+storage.Table(r.schema, "verifications")+` (
			id, member_id, result, kind, verifier_ip, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.MemberID, ev.Result, ev.Kind, nullIfEmpty(ev.IP), nullIfEmpty(ev.UserAgent), ev.CreatedAt)
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
