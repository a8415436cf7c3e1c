package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the memberships table.
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
			return fmt.Errorf("membership: %w", err)
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
		return nil, errors.New("membership: nil pool")
	}
	return st, nil
}

const selectColumns = `id, user_id::text, status, valid_until, last_payment_at, provider, renewal_mode, created_at, updated_at`

// authoritativeOrder is the tie-break used everywhere a single record is chosen.
const authoritativeOrder = `ORDER BY valid_until DESC NULLS LAST, created_at DESC LIMIT 1`

// Authoritative implements Store.
func (s *PostgresStore) Authoritative(ctx context.Context, memberID string) (Record, error) {
	memberships := storage.Table(s.schema, "memberships")

	rec, err := scanRecord(s.pool.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM `+memberships+`
		WHERE user_id = $1
		`+authoritativeOrder, memberID))
	if err != nil {
		return Record{}, mapErr(err)
	}
	return rec, nil
}

// Update implements Store. The authoritative row is locked with FOR UPDATE so
// two renewals for the same member cannot both extend from the same anchor.
// A member's very first grant has no row to lock; two concurrent first grants
// can each insert a record and the authoritative query picks one of them.
func (s *PostgresStore) Update(ctx context.Context, memberID string, fn func(current *Record) (Record, error)) (Record, error) {
	memberships := storage.Table(s.schema, "memberships")

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current *Record
	rec, err := scanRecord(tx.QueryRow(ctx, `
		SELECT `+selectColumns+`
		FROM `+memberships+`
		WHERE user_id = $1
		`+authoritativeOrder+`
		FOR UPDATE
	`, memberID))
	switch {
	case err == nil:
		current = &rec
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return Record{}, mapErr(err)
	}

	next, err := fn(current)
	if err != nil {
		return Record{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO `+memberships+` (
			id, user_id, status, valid_until, last_payment_at,
			provider, renewal_mode, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			valid_until = EXCLUDED.valid_until,
			last_payment_at = EXCLUDED.last_payment_at,
			provider = EXCLUDED.provider,
			renewal_mode = EXCLUDED.renewal_mode,
			updated_at = EXCLUDED.updated_at
	`, next.ID, next.MemberID, string(next.Status), next.ValidUntil, next.LastPaymentAt,
		next.Provider, next.RenewalMode, next.CreatedAt, next.UpdatedAt)
	if err != nil {
		return Record{}, mapErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return next, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec    Record
		status string
	)
	err := row.Scan(
		&rec.ID,
		&rec.MemberID,
		&status,
		&rec.ValidUntil,
		&rec.LastPaymentAt,
		&rec.Provider,
		&rec.RenewalMode,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Status = ParseStatus(status)
	return rec, nil
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
