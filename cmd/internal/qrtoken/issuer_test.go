package qrtoken

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/membership"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_ReusesWithinWindow(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(5*24*time.Hour)), now.Add(-time.Hour))

	first, err := f.issuer.Issue(context.Background(), memberM, now)
	require.NoError(t, err)
	assert.False(t, first.Reused)
	assert.Equal(t, now.Add(DefaultTTL), first.ExpiresAt)
	assert.Equal(t, DefaultTTL, first.TTL)

	second, err := f.issuer.Issue(context.Background(), memberM, now.Add(10*time.Second))
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, first.ExpiresAt, second.ExpiresAt)
}

func TestIssuer_RotatesAfterWindow(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(5*24*time.Hour)), now.Add(-time.Hour))

	first, err := f.issuer.Issue(context.Background(), memberM, now)
	require.NoError(t, err)

	second, err := f.issuer.Issue(context.Background(), memberM, now.Add(DefaultReuseWindow+time.Second))
	require.NoError(t, err)
	assert.False(t, second.Reused)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, now.Add(DefaultReuseWindow+time.Second+DefaultTTL), second.ExpiresAt)
}

func TestIssuer_DoesNotReuseConsumedToken(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(24*time.Hour)), now.Add(-time.Hour))

	first, err := f.issuer.Issue(context.Background(), memberM, now)
	require.NoError(t, err)
	_, err = f.tokens.Consume(context.Background(), first.Token, now.Add(time.Second))
	require.NoError(t, err)

	second, err := f.issuer.Issue(context.Background(), memberM, now.Add(2*time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
}

func TestIssuer_RefusesInactiveMembership(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberN, membership.StatusPastDue, nil, now.Add(-time.Hour))

	_, err := f.issuer.Issue(context.Background(), memberN, now)
	assert.ErrorIs(t, err, ErrMembershipInactive)

	// Refused before anything is stored.
	_, err = f.tokens.FindReusable(context.Background(), memberN, now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIssuer_RefusesLapsedActiveRow(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(-time.Minute)), now.Add(-40*24*time.Hour))

	_, err := f.issuer.Issue(context.Background(), memberM, now)
	assert.ErrorIs(t, err, ErrMembershipInactive)
}

func TestIssuer_RefusesMemberWithoutRecord(t *testing.T) {
	f := newFixture(t)
	_, err := f.issuer.Issue(context.Background(), memberN, time.Now())
	assert.ErrorIs(t, err, ErrMembershipInactive)
}

func TestIssuer_TrialingIsActive(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusTrialing, at(now.Add(7*24*time.Hour)), now.Add(-time.Hour))

	issued, err := f.issuer.Issue(context.Background(), memberM, now)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
}

func TestIssuer_InvalidMemberID(t *testing.T) {
	f := newFixture(t)
	_, err := f.issuer.Issue(context.Background(), "not-a-uuid", time.Now())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

type stubMemberships struct {
	snap membership.Snapshot
	err  error
}

func (s stubMemberships) Current(context.Context, string, time.Time) (membership.Snapshot, error) {
	return s.snap, s.err
}

func TestIssuer_PropagatesProvisioningErrors(t *testing.T) {
	missing := stubMemberships{snap: membership.NoMembership(), err: membership.ErrNotProvisioned}
	iss, err := NewIssuer(NewMemoryStore(), missing)
	require.NoError(t, err)

	_, err = iss.Issue(context.Background(), memberM, time.Now())
	assert.ErrorIs(t, err, membership.ErrNotProvisioned)

	active := stubMemberships{snap: membership.Snapshot{Found: true, Status: membership.StatusActive, Active: true}}
	iss, err = NewIssuer(brokenStore{err: ErrNotProvisioned}, active)
	require.NoError(t, err)

	_, err = iss.Issue(context.Background(), memberM, time.Now())
	assert.ErrorIs(t, err, ErrNotProvisioned)
}

func TestNewIssuer_Validation(t *testing.T) {
	_, err := NewIssuer(nil, stubMemberships{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewIssuer(NewMemoryStore(), stubMemberships{}, WithTTL(30*time.Second), WithReuseWindow(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewIssuer(NewMemoryStore(), stubMemberships{}, WithTTL(0))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

type brokenStore struct{ err error }

func (b brokenStore) Get(context.Context, string) (Token, error) { return Token{}, b.err }

func (b brokenStore) FindReusable(context.Context, string, time.Time, time.Time) (Token, error) {
	return Token{}, b.err
}

func (b brokenStore) Create(context.Context, Token) (Token, error) { return Token{}, b.err }

func (b brokenStore) Consume(context.Context, string, time.Time) (Token, error) {
	return Token{}, b.err
}

func (b brokenStore) Revoke(context.Context, string) (Token, error) { return Token{}, b.err }
