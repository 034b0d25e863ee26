package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcrypt(t *testing.T) {
	b := NewBcrypt(4)
	hash, err := b.Hash("s3cure-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cure-pass", hash)
	assert.True(t, b.Compare(hash, "s3cure-pass"))
	assert.False(t, b.Compare(hash, "wrong"))
	assert.False(t, b.Compare("not-a-hash", "s3cure-pass"))

	assert.Equal(t, 10, NewBcrypt(0).Cost, "out of range cost falls back to the default")
	assert.Equal(t, 10, NewBcrypt(99).Cost)
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", "luxe", time.Minute, time.Hour)

	pair, err := issuer.Issue(42, true)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	claims, err := issuer.Parse(pair.Access, AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.True(t, claims.Staff)
	assert.Equal(t, "luxe", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	refresh, err := issuer.Parse(pair.Refresh, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, RefreshToken, refresh.Type)
}

func TestTokenRejections(t *testing.T) {
	issuer := NewTokenIssuer("secret", "luxe", time.Minute, time.Hour)
	pair, err := issuer.Issue(7, false)
	require.NoError(t, err)

	_, err = issuer.Parse(pair.Refresh, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh tokens are not access tokens")

	_, err = issuer.Parse(pair.Access, RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenIssuer("other", "luxe", time.Minute, time.Hour).Parse(pair.Access, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "different secret")

	_, err = NewTokenIssuer("secret", "someone-else", time.Minute, time.Hour).Parse(pair.Access, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "different issuer")

	_, err = issuer.Parse("garbage", AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "7", Issuer: "luxe"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(none, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "unsigned tokens")
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewTokenIssuer("secret", "luxe", time.Minute, time.Hour)
	start := time.Now()
	issuer.now = func() time.Time { return start }

	pair, err := issuer.Issue(1, false)
	require.NoError(t, err)

	issuer.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = issuer.Parse(pair.Access, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse(pair.Refresh, RefreshToken)
	assert.NoError(t, err, "refresh outlives access")
}

func TestClaimsUserID(t *testing.T) {
	for _, sub := range []string{"", "0", "abc", "-1"} {
		c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}
		_, err := c.UserID()
		assert.ErrorIs(t, err, ErrInvalidToken, sub)
	}
}
