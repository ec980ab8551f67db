package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    at, err := NewAccessToken("s3cret", 42, "ADMIN", 5)
    require.NoError(t, err)
    assert.WithinDuration(t, time.Now().Add(5*time.Minute), at.Exp, 5*time.Second)

    id, role, err := ParseAccessToken("s3cret", at.Token)
    require.NoError(t, err)
    assert.Equal(t, uint64(42), id)
    assert.Equal(t, "ADMIN", role)
}

func TestParseAccessToken_Rejects(t *testing.T) {
    good, err := NewAccessToken("s3cret", 42, "USER", 5)
    require.NoError(t, err)
    expired, err := NewAccessToken("s3cret", 42, "USER", -1)
    require.NoError(t, err)

    none := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
        Role:             "ADMIN",
        RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
    })
    unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
    require.NoError(t, err)

    noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
        RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
    })
    noRoleRaw, err := noRole.SignedString([]byte("s3cret"))
    require.NoError(t, err)

    cases := map[string]struct{ secret, raw string }{
        "wrong secret": {"other", good.Token},
        "expired":      {"s3cret", expired.Token},
        "alg none":     {"s3cret", unsigned},
        "garbage":      {"s3cret", "not.a.token"},
        "no role":      {"s3cret", noRoleRaw},
    }
    for name, tc := range cases {
        t.Run(name, func(t *testing.T) {
            _, _, err := ParseAccessToken(tc.secret, tc.raw)
            assert.ErrorIs(t, err, ErrInvalidToken)
        })
    }
}

func TestRefreshToken(t *testing.T) {
    rt, err := NewRefreshToken(7)
    require.NoError(t, err)
    assert.Len(t, rt.Raw, 96)
    assert.Len(t, HashRefreshRaw(rt.Raw), 64)
    assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))

    other, err := NewRefreshToken(7)
    require.NoError(t, err)
    assert.NotEqual(t, rt.Raw, other.Raw)
}

func TestPassword(t *testing.T) {
    hash, err := HashPassword("hunter22", 4)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(hash, "hunter22"))
    assert.False(t, VerifyPassword(hash, "hunter23"))
}
