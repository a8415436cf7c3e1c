package qrtoken

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/audit"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/membership"
	"github.com/fFrancko/beneficios-mvp-web/cmd/security/token"

	"github.com/stretchr/testify/require"
)

const (
	memberM = "0b8e5c8a-8f8e-4bd0-9f3a-3c8a0d1b2e4f"
	memberN = "6f9619ff-8b86-d011-b42d-00c04fc964ff"
)

var legacySecret = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	tokens    *MemoryStore
	records   *membership.MemoryStore
	directory *identity.MemoryStore
	events    *audit.MemoryRecorder
	signer    *token.LegacySigner
	issuer    *Issuer
	verifier  *Verifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		tokens:    NewMemoryStore(),
		records:   membership.NewMemoryStore(),
		directory: identity.NewMemoryStore(),
		events:    audit.NewMemoryRecorder(0),
		signer:    token.NewLegacySigner(legacySecret),
	}

	svc, err := membership.NewService(f.records)
	require.NoError(t, err)

	f.issuer, err = NewIssuer(f.tokens, svc, WithIssuerLogger(log))
	require.NoError(t, err)

	f.verifier, err = NewVerifier(f.tokens, svc, f.directory,
		WithLegacyParser(f.signer),
		WithAuditRecorder(f.events),
		WithVerifierLogger(log),
	)
	require.NoError(t, err)
	return f
}

func (f *fixture) setMembership(t *testing.T, memberID string, status membership.Status, validUntil *time.Time, createdAt time.Time) {
	t.Helper()
	f.records.Insert(membership.Record{
		ID:         memberID + "-" + createdAt.Format(time.RFC3339Nano),
		MemberID:   memberID,
		Status:     status,
		ValidUntil: validUntil,
		CreatedAt:  createdAt,
	})
}

func (f *fixture) setProfile(t *testing.T, memberID, fullName, email string) {
	t.Helper()
	require.NoError(t, f.directory.Put(identity.Profile{ID: memberID, FullName: &fullName, Email: &email}))
}

func at(t time.Time) *time.Time { return &t }
