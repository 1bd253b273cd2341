package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibesphere/infrastructure"
	"vibesphere/internal/transport"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	user := transport.User{ID: "u1", Username: "me", ProfilePic: "pic.png"}
	require.NoError(t, store.Save(user, "tok-1"))

	got, token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, user, got)
	assert.Equal(t, "tok-1", token)
}

func TestLoadWithoutIdentity(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Load()
	assert.ErrorIs(t, err, infrastructure.ErrNoIdentity)
}

func TestSaveOverwritesPreviousIdentity(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(transport.User{ID: "u1", Username: "me"}, "tok-1"))
	require.NoError(t, store.Save(transport.User{ID: "u2", Username: "other"}, "tok-2"))

	got, token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "u2", got.ID)
	assert.Equal(t, "tok-2", token)
}

func TestClearIsIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(transport.User{ID: "u1"}, "tok"))
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())

	_, _, err = store.Load()
	assert.ErrorIs(t, err, infrastructure.ErrNoIdentity)
}

func signedToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestParseClaims(t *testing.T) {
	token := signedToken(t, &Claims{
		UserID:   "u1",
		Username: "me",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "me", claims.Username)
	assert.False(t, claims.Expired(time.Now()))
}

func TestParseClaimsExpired(t *testing.T) {
	token := signedToken(t, &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.True(t, claims.Expired(time.Now()))
}

func TestParseClaimsGarbage(t *testing.T) {
	_, err := ParseClaims("not-a-token")
	assert.Error(t, err)
}
