package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore resolves profiles from the profiles table.
//
// The pgx pool is owned by the caller; this store must NOT close it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the Postgres schema (default "public").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		normalized, err := storage.NormalizeSchema(schema)
		if err != nil {
			return fmt.Errorf("identity: %w", err)
		}
		s.schema = normalized
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: storage.DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("identity: nil pool")
	}
	return st, nil
}

// GetProfile loads a single profile by member id.
func (s *PostgresStore) GetProfile(ctx context.Context, memberID string) (Profile, error) {
	const op = "identity.GetProfile"

	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	id, err := ParseMemberID(memberID)
	if err != nil {
		return Profile{}, err
	}

	profiles := storage.Table(s.schema, "profiles")

	var p Profile
	err = s.pool.QueryRow(ctx, `
		SELECT id::text, full_name, email, avatar_url
		FROM `+profiles+`
		WHERE id = $1
	`, id).Scan(&p.ID, &p.FullName, &p.Email, &p.AvatarURL)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Profile{}, NotFoundError{Op: op, Resource: "profile"}
		case storage.IsUndefinedTable(err):
			return Profile{}, OpError{Op: op, Kind: ErrNotProvisioned, Msg: "profiles", Err: err}
		default:
			return Profile{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	return p, nil
}
