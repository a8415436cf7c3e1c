package membership

import (
	"context"
	"testing"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/storage"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_AuthoritativeOrdering(t *testing.T) {
	pool := storagetest.OpenPool(t)
	schema := storagetest.NewSchema(t, pool)

	st, err := NewPostgresStore(pool, WithSchema(schema))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	table := storage.Table(schema, "memberships")
	seed := func(id string, validUntil *time.Time, createdAt time.Time, status string) {
		_, err := pool.Exec(ctx, `INSERT INTO `+table+` (id, user_id, status, valid_until, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
			id, memberM, status, validUntil, createdAt)
		require.NoError(t, err)
	}

	far := base.Add(60 * 24 * time.Hour)
	near := base.Add(10 * 24 * time.Hour)
	seed("r-nil", nil, base.Add(5*time.Hour), "active")
	seed("r-near", &near, base.Add(4*time.Hour), "active")
	seed("r-far-old", &far, base, "trialing")
	seed("r-far-new", &far, base.Add(time.Hour), "active")

	rec, err := st.Authoritative(ctx, memberM)
	require.NoError(t, err)
	assert.Equal(t, "r-far-new", rec.ID)
	assert.Equal(t, StatusActive, rec.Status)

	_, err = st.Authoritative(ctx, "6f9619ff-8b86-d011-b42d-00c04fc964ff")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_RenewProrates(t *testing.T) {
	pool := storagetest.OpenPool(t)
	schema := storagetest.NewSchema(t, pool)

	st, err := NewPostgresStore(pool, WithSchema(schema))
	require.NoError(t, err)
	svc, err := NewService(st)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := svc.Renew(ctx, RenewInput{MemberID: memberM, Now: now})
	require.NoError(t, err)
	require.True(t, first.ValidUntil.Equal(now.Add(DefaultRenewalPeriod)))

	later := now.Add(20 * 24 * time.Hour)
	second, err := svc.Renew(ctx, RenewInput{MemberID: memberM, Now: later})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.ValidUntil.Equal(first.ValidUntil.Add(DefaultRenewalPeriod)))

	snap, err := svc.Current(ctx, memberM, later)
	require.NoError(t, err)
	assert.True(t, snap.Active)
}

func TestPostgresStore_MissingTable(t *testing.T) {
	pool := storagetest.OpenPool(t)
	schema := storagetest.NewSchema(t, pool)
	storagetest.DropTable(t, pool, schema, "memberships")

	st, err := NewPostgresStore(pool, WithSchema(schema))
	require.NoError(t, err)

	_, err = st.Authoritative(context.Background(), memberM)
	assert.ErrorIs(t, err, ErrNotProvisioned)
}
