package qrtoken

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/audit"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/membership"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scanner = RequestMeta{IP: "203.0.113.7", UserAgent: "scanner/1.0"}

func TestVerify_OneShot(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(5*24*time.Hour)), now.Add(-time.Hour))
	f.setProfile(t, memberM, "Ana Pérez", "ana@example.com")

	issued, err := f.issuer.Issue(context.Background(), memberM, now)
	require.NoError(t, err)

	first, err := f.verifier.Verify(context.Background(), issued.Token, now.Add(10*time.Second), scanner)
	require.NoError(t, err)
	assert.True(t, first.Valid)
	assert.Empty(t, first.Reason)
	assert.Equal(t, KindDBToken, first.Kind)
	assert.Equal(t, memberM, first.MemberID)
	assert.True(t, first.Membership.Active)
	require.NotNil(t, first.Member)
	assert.Equal(t, "Ana Pérez", *first.Member.FullName)
	require.NotNil(t, first.ExpiresAt)
	assert.Equal(t, issued.ExpiresAt, *first.ExpiresAt)

	second, err := f.verifier.Verify(context.Background(), issued.Token, now.Add(11*time.Second), scanner)
	require.NoError(t, err)
	assert.False(t, second.Valid)
	assert.Equal(t, ReasonAlreadyUsed, second.Reason)
	assert.Equal(t, KindDBToken, second.Kind)

	events := f.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, audit.ResultValid, events[0].Result)
	assert.Equal(t, string(KindDBToken), events[0].Kind)
	assert.Equal(t, scanner.IP, events[0].IP)
	assert.Equal(t, scanner.UserAgent, events[0].UserAgent)
	require.NotNil(t, events[0].MemberID)
	assert.Equal(t, memberM, *events[0].MemberID)
	assert.Equal(t, string(ReasonAlreadyUsed), events[1].Result)
}

func TestVerify_Expired(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(24*time.Hour)), now.Add(-time.Hour))

	issued, err := f.issuer.Issue(context.Background(), memberM, now)
	require.NoError(t, err)

	// Still valid at exactly expires_at.
	atExpiry, err := f.tokens.Get(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.True(t, atExpiry.Usable(issued.ExpiresAt))

	res, err := f.verifier.Verify(context.Background(), issued.Token, issued.ExpiresAt.Add(time.Second), scanner)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonExpired, res.Reason)
}

func TestVerify_ExpiredWinsOverUsedAndRevoked(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(24*time.Hour)), now.Add(-time.Hour))

	issued, err := f.issuer.Issue(context.Background(), memberM, now)
	require.NoError(t, err)
	_, err = f.tokens.Consume(context.Background(), issued.Token, now.Add(time.Second))
	require.NoError(t, err)
	_, err = f.tokens.Revoke(context.Background(), issued.Token)
	require.NoError(t, err)

	res, err := f.verifier.Verify(context.Background(), issued.Token, now.Add(DefaultTTL+time.Minute), scanner)
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, res.Reason)
}

func TestVerify_Revoked(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(24*time.Hour)), now.Add(-time.Hour))

	issued, err := f.issuer.Issue(context.Background(), memberM, now)
	require.NoError(t, err)
	_, err = f.tokens.Revoke(context.Background(), issued.Token)
	require.NoError(t, err)

	res, err := f.verifier.Verify(context.Background(), issued.Token, now.Add(5*time.Second), scanner)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonRevoked, res.Reason)

	stored, err := f.tokens.Get(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Nil(t, stored.UsedAt)
}

func TestVerify_MembershipGate(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(30*time.Second)), now.Add(-time.Hour))

	issued, err := f.issuer.Issue(context.Background(), memberM, now)
	require.NoError(t, err)

	// Membership lapses while the token is still live.
	res, err := f.verifier.Verify(context.Background(), issued.Token, now.Add(time.Minute), scanner)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonMembershipInactive, res.Reason)
	assert.False(t, res.Membership.Active)

	// A refused token is not consumed.
	stored, err := f.tokens.Get(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Nil(t, stored.UsedAt)
}

func TestVerify_MembershipRowDeletedAfterIssue(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issued := Token{Value: "orphan-token", MemberID: memberN, CreatedAt: now, ExpiresAt: now.Add(DefaultTTL)}
	_, err := f.tokens.Create(context.Background(), issued)
	require.NoError(t, err)

	res, err := f.verifier.Verify(context.Background(), issued.Value, now.Add(time.Second), scanner)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonMembershipInactive, res.Reason)
	assert.False(t, res.Membership.Found)
	assert.Equal(t, membership.StatusPastDue, res.Membership.Status)
	assert.Nil(t, res.Member)
}

func TestVerify_LegacyIsRepeatable(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(5*24*time.Hour)), now.Add(-time.Hour))

	raw, exp, err := f.signer.Mint(memberM, 5*time.Minute, now.Add(-4*time.Minute))
	require.NoError(t, err)

	first, err := f.verifier.Verify(context.Background(), raw, now, scanner)
	require.NoError(t, err)
	assert.True(t, first.Valid)
	assert.Equal(t, KindLegacy, first.Kind)
	assert.Equal(t, memberM, first.MemberID)
	require.NotNil(t, first.ExpiresAt)
	assert.True(t, exp.Equal(*first.ExpiresAt))

	second, err := f.verifier.Verify(context.Background(), raw, now.Add(10*time.Second), scanner)
	require.NoError(t, err)
	assert.Equal(t, first.Valid, second.Valid)
	assert.Empty(t, second.Reason)

	require.Len(t, f.events.Events(), 2)
}

func TestVerify_LegacyInactiveMember(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberN, membership.StatusCanceled, at(now.Add(24*time.Hour)), now.Add(-time.Hour))

	raw, _, err := f.signer.Mint(memberN, time.Minute, now)
	require.NoError(t, err)

	res, err := f.verifier.Verify(context.Background(), raw, now, scanner)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, KindLegacy, res.Kind)
	assert.Equal(t, ReasonMembershipInactive, res.Reason)
}

func TestVerify_LegacyMissingSubject(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString(legacySecret)
	require.NoError(t, err)

	res, err := f.verifier.Verify(context.Background(), raw, now, scanner)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, KindLegacy, res.Kind)
	assert.Equal(t, ReasonMissingSub, res.Reason)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Nil(t, events[0].MemberID)
	assert.Equal(t, string(ReasonMissingSub), events[0].Result)
}

func TestVerify_LegacyUnknownSubjectFormat(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	raw, exp, err := f.signer.Mint("not-a-uuid", time.Minute, now)
	require.NoError(t, err)

	res, err := f.verifier.Verify(context.Background(), raw, now, scanner)
	require.NoError(t, err)
	assert.True(t, res.Matched())
	assert.False(t, res.Valid)
	assert.Equal(t, KindLegacy, res.Kind)
	assert.Equal(t, ReasonMembershipInactive, res.Reason)
	assert.Empty(t, res.MemberID)
	assert.False(t, res.Membership.Active)
	require.NotNil(t, res.ExpiresAt)
	assert.True(t, exp.Equal(*res.ExpiresAt))

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Nil(t, events[0].MemberID)
	assert.Equal(t, string(KindLegacy), events[0].Kind)
	assert.Equal(t, string(ReasonMembershipInactive), events[0].Result)
}

func TestVerify_InvalidOrMalformed(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expired, _, err := f.signer.Mint(memberM, time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   memberM,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}).SignedString([]byte("another-secret-another-secret-xx"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"unknown":     "no-such-token",
		"expired jwt": expired,
		"foreign key": foreign,
		"garbage":     "a.b.c",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := f.verifier.Verify(context.Background(), raw, now, scanner)
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.False(t, res.Matched())
			assert.Equal(t, ReasonInvalidOrMalformed, res.Reason)
			assert.Empty(t, res.Kind)
		})
	}
	assert.Empty(t, f.events.Events())
}

func TestVerify_EmptyInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.verifier.Verify(context.Background(), "   ", time.Now(), scanner)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerify_WithoutLegacyParser(t *testing.T) {
	svc, err := membership.NewService(membership.NewMemoryStore())
	require.NoError(t, err)
	v, err := NewVerifier(NewMemoryStore(), svc, newFixture(t).directory)
	require.NoError(t, err)

	res, err := v.Verify(context.Background(), "eyJhbGciOiJIUzI1NiJ9.e30.x", time.Now(), scanner)
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidOrMalformed, res.Reason)
}

func TestVerify_AuditFailureDoesNotChangeResult(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(24*time.Hour)), now.Add(-time.Hour))

	var attempts atomic.Int32
	failing := audit.RecorderFunc(func(context.Context, audit.Event) error {
		attempts.Add(1)
		return errors.New("verifications table missing")
	})
	svc, err := membership.NewService(f.records)
	require.NoError(t, err)
	v, err := NewVerifier(f.tokens, svc, f.directory, WithAuditRecorder(failing))
	require.NoError(t, err)

	issued, err := f.issuer.Issue(context.Background(), memberM, now)
	require.NoError(t, err)

	res, err := v.Verify(context.Background(), issued.Token, now.Add(time.Second), scanner)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.EqualValues(t, 1, attempts.Load())
}

func TestVerify_MissingTokenTableFallsThrough(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(24*time.Hour)), now.Add(-time.Hour))
	svc, err := membership.NewService(f.records)
	require.NoError(t, err)

	v, err := NewVerifier(brokenStore{err: ErrNotProvisioned}, svc, f.directory, WithLegacyParser(f.signer))
	require.NoError(t, err)

	raw, _, err := f.signer.Mint(memberM, time.Minute, now)
	require.NoError(t, err)

	res, err := v.Verify(context.Background(), raw, now, scanner)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, KindLegacy, res.Kind)

	res, err = v.Verify(context.Background(), "some-db-token", now, scanner)
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidOrMalformed, res.Reason)
}

func TestVerify_StoreFailureIsAnError(t *testing.T) {
	f := newFixture(t)
	svc, err := membership.NewService(f.records)
	require.NoError(t, err)
	boom := errors.New("connection reset")

	v, err := NewVerifier(brokenStore{err: boom}, svc, f.directory)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "whatever", time.Now(), scanner)
	assert.ErrorIs(t, err, boom)
}

func TestVerify_ConcurrentScansConsumeOnce(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.setMembership(t, memberM, membership.StatusActive, at(now.Add(24*time.Hour)), now.Add(-time.Hour))

	issued, err := f.issuer.Issue(context.Background(), memberM, now)
	require.NoError(t, err)

	const scanners = 16
	var (
		wg    sync.WaitGroup
		valid atomic.Int32
		used  atomic.Int32
	)
	start := make(chan struct{})
	for range scanners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := f.verifier.Verify(context.Background(), issued.Token, now.Add(time.Second), scanner)
			if err != nil {
				return
			}
			switch {
			case res.Valid:
				valid.Add(1)
			case res.Reason == ReasonAlreadyUsed:
				used.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, valid.Load())
	assert.EqualValues(t, scanners-1, used.Load())
}
