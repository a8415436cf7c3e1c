package cli

import (
	"bytes"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/app"
	"github.com/fFrancko/beneficios-mvp-web/cmd/security/token"
)

const memberM = "0b8e5c8a-8f8e-4bd0-9f3a-3c8a0d1b2e4f"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLegacyTokenMint(t *testing.T) {
	secret := "legacy-secret-legacy-secret-legacy"
	t.Setenv("BENEFICIOS_LEGACY_JWT_SECRET", secret)
	t.Setenv("BENEFICIOS_SITE_URL", "https://club.example/")

	out, err := run(t, "legacy-token", "mint", "--member", memberM, "--ttl", "2m")
	require.NoError(t, err)

	link, _, ok := strings.Cut(strings.TrimSpace(out), "\n")
	require.True(t, ok, "output: %q", out)
	require.True(t, strings.HasPrefix(link, "https://club.example/verify?t="), "link: %s", link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	claims, err := token.NewLegacySigner([]byte(secret)).Parse(u.Query().Get("t"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, memberM, claims.Subject)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestLegacyTokenMintRejects(t *testing.T) {
	t.Setenv("BENEFICIOS_LEGACY_JWT_SECRET", "")

	_, err := run(t, "legacy-token", "mint", "--member", memberM)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BENEFICIOS_LEGACY_JWT_SECRET")

	t.Setenv("BENEFICIOS_LEGACY_JWT_SECRET", "legacy-secret-legacy-secret-legacy")
	_, err = run(t, "legacy-token", "mint", "--member", "not-a-uuid")
	require.Error(t, err)

	_, err = run(t, "legacy-token", "mint")
	require.Error(t, err)
}

func TestDatabaseCommandsNeedDatabase(t *testing.T) {
	t.Setenv("BENEFICIOS_DATABASE_URL", "")
	t.Setenv("BENEFICIOS_LOG_LEVEL", "error")

	_, err := run(t, "token", "revoke", "some-value")
	require.ErrorIs(t, err, app.ErrNoDatabase)

	_, err = run(t, "membership", "grant", "--member", memberM, "--days", "30")
	require.ErrorIs(t, err, app.ErrNoDatabase)

	_, err = run(t, "migrate", "up")
	require.Error(t, err)
}

func TestGrantValidatesDays(t *testing.T) {
	_, err := run(t, "membership", "grant", "--member", memberM, "--days", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--days")
}

func TestTokenRevokeNeedsValue(t *testing.T) {
	_, err := run(t, "token", "revoke")
	require.Error(t, err)
}
