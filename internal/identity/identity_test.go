package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTResolver_IssueAndResolve(t *testing.T) {
	r := NewJWTResolver("test-secret", time.Hour)
	want := Identity{ID: "u-1", Name: "Asha", Role: RoleUser}

	token, err := r.Issue(want)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestJWTResolver_TokenWithoutRole(t *testing.T) {
	r := NewJWTResolver("test-secret", time.Hour)
	token, err := r.Issue(Identity{ID: "clinic-9"})
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "clinic-9", got.ID)
	assert.Empty(t, got.Role)
}

func TestJWTResolver_Rejects(t *testing.T) {
	r := NewJWTResolver("test-secret", time.Hour)

	t.Run("empty", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrMissingCredential)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTResolver("other-secret", time.Hour)
		token, err := other.Issue(Identity{ID: "u-1"})
		require.NoError(t, err)
		_, err = r.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewJWTResolver("test-secret", time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := past.Issue(Identity{ID: "u-1"})
		require.NoError(t, err)
		_, err = r.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, ErrExpiredCredential)
	})

	t.Run("unknown role", func(t *testing.T) {
		token, err := r.Issue(Identity{ID: "u-1", Role: "admin"})
		require.NoError(t, err)
		_, err = r.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("missing id", func(t *testing.T) {
		token, err := r.Issue(Identity{Name: "nobody"})
		require.NoError(t, err)
		_, err = r.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("non hmac", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{ID: "u-1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = r.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}
