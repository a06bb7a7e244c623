package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuerRoundTrip(t *testing.T) {
	i := NewIssuer("secret", time.Hour)
	token, exp, err := i.Issue()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
	assert.NoError(t, i.Verify(token))
}

func TestIssuerRejects(t *testing.T) {
	i := NewIssuer("secret", time.Hour)
	token, _, err := i.Issue()
	require.NoError(t, err)

	assert.ErrorIs(t, NewIssuer("other", time.Hour).Verify(token), ErrInvalidSession)
	assert.ErrorIs(t, i.Verify("not-a-token"), ErrInvalidSession)

	expired := NewIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue()
	require.NoError(t, err)
	assert.ErrorIs(t, i.Verify(old), ErrInvalidSession)

	unauthenticated, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	assert.ErrorIs(t, i.Verify(unauthenticated), ErrInvalidSession)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{Authenticated: true}).SignedString([]byte("secret"))
	require.NoError(t, err)
	assert.ErrorIs(t, i.Verify(noExpiry), ErrInvalidSession)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims{
		Authenticated:    true,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.ErrorIs(t, i.Verify(none), ErrInvalidSession)
}
