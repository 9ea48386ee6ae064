package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{}
	if sub != "" {
		claims["sub"] = sub
	}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestIdentityFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := mintToken(t, "w7x7r-cok77-xa", exp)

	id, err := IdentityFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "w7x7r-cok77-xa", id.Principal)
	assert.Equal(t, token, id.Token)
	assert.True(t, id.ExpiresAt.Equal(exp))
}

func TestIdentityFromTokenRejectsMissingSubject(t *testing.T) {
	_, err := IdentityFromToken(mintToken(t, "", time.Now().Add(time.Hour)))
	assert.Error(t, err)
}

func TestIdentityFromTokenRejectsGarbage(t *testing.T) {
	_, err := IdentityFromToken("not-a-jwt")
	assert.Error(t, err)
}

func TestValidIdentityFromToken(t *testing.T) {
	now := time.Now()

	t.Run("empty token is anonymous", func(t *testing.T) {
		id, err := ValidIdentityFromToken("", now)
		require.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("expired delegation is anonymous", func(t *testing.T) {
		id, err := ValidIdentityFromToken(mintToken(t, "abc", now.Add(-time.Hour)), now)
		require.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("live delegation resolves", func(t *testing.T) {
		id, err := ValidIdentityFromToken(mintToken(t, "abc", now.Add(time.Hour)), now)
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, "abc", id.Principal)
	})
}

func TestStoredClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "delegation")
	token := mintToken(t, "w7x7r-cok77-xa", time.Now().Add(time.Hour))

	flow := func(ctx context.Context, opts LoginOptions) (string, error) {
		return token, nil
	}

	c := NewStoredClient(path, flow)
	require.NoError(t, c.Load())
	assert.Nil(t, c.Identity(ctx))

	id, err := c.Login(ctx, LoginOptions{})
	require.NoError(t, err)
	assert.Equal(t, "w7x7r-cok77-xa", id.Principal)
	assert.True(t, c.IsAuthenticated(ctx))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A new client over the same file restores the session.
	restored := NewStoredClient(path, flow)
	require.NoError(t, restored.Load())
	require.NotNil(t, restored.Identity(ctx))
	assert.Equal(t, "w7x7r-cok77-xa", restored.Identity(ctx).Principal)

	require.NoError(t, c.Logout(ctx))
	assert.Nil(t, c.Identity(ctx))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// Logging out without a session still succeeds.
	require.NoError(t, c.Logout(ctx))
}

func TestStoredClientLoadSkipsLapsedDelegation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delegation")
	token := mintToken(t, "abc", time.Now().Add(-time.Hour))
	require.NoError(t, os.WriteFile(path, []byte(token), 0o600))

	c := NewStoredClient(path, nil)
	require.NoError(t, c.Load())
	assert.Nil(t, c.Identity(context.Background()))
}

func TestStoredClientLoginFlowFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delegation")
	c := NewStoredClient(path, func(ctx context.Context, opts LoginOptions) (string, error) {
		return "", errors.New("user abandoned the flow")
	})

	_, err := c.Login(context.Background(), LoginOptions{})
	assert.ErrorIs(t, err, ErrProvider)
	assert.Nil(t, c.Identity(context.Background()))
}

func TestStoredClientRejectsExpiredDelegationFromFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delegation")
	token := mintToken(t, "abc", time.Now().Add(-time.Minute))
	c := NewStoredClient(path, func(ctx context.Context, opts LoginOptions) (string, error) {
		return token, nil
	})

	_, err := c.Login(context.Background(), LoginOptions{})
	assert.ErrorIs(t, err, ErrProvider)
}
