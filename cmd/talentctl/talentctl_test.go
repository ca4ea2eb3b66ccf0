package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"talentmarket-service/internal/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNow(t *testing.T) {
	fixed := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }

	got, err := parseNow("", clock)
	require.NoError(t, err)
	assert.Equal(t, fixed, got)

	got, err = parseNow("2026-02-03T04:05:06+05:30", clock)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 2, 2, 22, 35, 6, 0, time.UTC)))

	_, err = parseNow("yesterday", clock)
	assert.ErrorContains(t, err, "RFC3339")

	_, err = parseNow("2026-06-01T00:00:01Z", clock)
	assert.ErrorContains(t, err, "future")

	got, err = parseNow("2026-06-01T00:00:00Z", clock)
	require.NoError(t, err)
	assert.Equal(t, fixed, got)
}

func TestIssueToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	gen := jwt.NewGenerator(key, "talentmarket", "talentmarket-users", "", time.Hour)
	ver := jwt.NewVerifier(&key.PublicKey, "talentmarket", "talentmarket-users")

	token, _, err := issueToken(gen, 11, []string{jwt.RoleAdmin}, 5*time.Minute)
	require.NoError(t, err)

	claims, err := ver.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(11), claims.IdentityID)
	assert.True(t, claims.IsAdmin())
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, time.Minute)

	_, _, err = issueToken(gen, 0, nil, 0)
	assert.Error(t, err)
	_, _, err = issueToken(gen, 1, []string{"owner"}, 0)
	assert.ErrorContains(t, err, "unknown role")
}

func TestRootCommand_RejectsBadNow(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"sweep", "run", "--now", "not-a-time"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "invalid --now")
}

func TestRootCommand_RejectsFutureNow(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"sweep", "run", "--now", "2999-01-01T00:00:00Z"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "cannot be in the future")
	assert.Empty(t, out.String())
}
