package qrtoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the qr_tokens table.
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
			return fmt.Errorf("qrtoken: %w", err)
		}
		s.schema = normalized
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: storage.DefaultSchema}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("qrtoken: nil pool")
	}
	return st, nil
}

const tokenColumns = `token, user_id::text, created_at, expires_at, revoked, used_at`

func (s *PostgresStore) table() string { return storage.Table(s.schema, "qr_tokens") }

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, value string) (Token, error) {
	t, err := scanToken(s.pool.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM `+s.table()+`
		WHERE token = $1
	`, value))
	if err != nil {
		return Token{}, mapErr(err)
	}
	return t, nil
}

// FindReusable implements Store.
func (s *PostgresStore) FindReusable(ctx context.Context, memberID string, now, createdAfter time.Time) (Token, error) {
	t, err := scanToken(s.pool.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM `+s.table()+`
		WHERE user_id = $1
		  AND used_at IS NULL
		  AND revoked = false
		  AND expires_at > $2
		  AND created_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`, memberID, now, createdAfter))
	if err != nil {
		return Token{}, mapErr(err)
	}
	return t, nil
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, in Token) (Token, error) {
	t, err := scanToken(s.pool.QueryRow(ctx, `
		INSERT INTO `+s.table()+` (token, user_id, created_at, expires_at, revoked, used_at)
		VALUES ($1, $2, $3, $4, false, NULL)
		RETURNING `+tokenColumns+`
	`, in.Value, in.MemberID, in.CreatedAt, in.ExpiresAt))
	if err != nil {
		return Token{}, mapErr(err)
	}
	return t, nil
}

// Consume implements Store with one conditional UPDATE. A follow-up read
// only classifies the failure; it never decides success.
func (s *PostgresStore) Consume(ctx context.Context, value string, now time.Time) (Token, error) {
	t, err := scanToken(s.pool.QueryRow(ctx, `
		UPDATE `+s.table()+`
		SET used_at = $2
		WHERE token = $1
		  AND used_at IS NULL
		  AND revoked = false
		  AND expires_at >= $2
		RETURNING `+tokenColumns+`
	`, value, now))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Token{}, mapErr(err)
	}

	current, getErr := s.Get(ctx, value)
	if getErr != nil {
		return Token{}, getErr
	}
	return current, ErrNotActive
}

// Revoke implements Store.
func (s *PostgresStore) Revoke(ctx context.Context, value string) (Token, error) {
	t, err := scanToken(s.pool.QueryRow(ctx, `
		UPDATE `+s.table()+`
		SET revoked = true
		WHERE token = $1
		RETURNING `+tokenColumns+`
	`, value))
	if err != nil {
		return Token{}, mapErr(err)
	}
	return t, nil
}

func scanToken(row pgx.Row) (Token, error) {
	var t Token
	err := row.Scan(&t.Value, &t.MemberID, &t.CreatedAt, &t.ExpiresAt, &t.Revoked, &t.UsedAt)
	return t, err
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case storage.IsUndefinedTable(err):
		return fmt.Errorf("%w: %v", ErrNotProvisioned, err)
	case storage.IsInvalidText(err):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return err
	}
}
