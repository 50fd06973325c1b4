package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/ecowise/ecowise/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestHS256SignAndVerify(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	require.Equal(t, "HS256", signer.Alg())

	claims := jwtx.NewClaims("user-1", "user", 2, time.Hour, exampleIssuer, time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	parsed, err := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{Issuer: exampleIssuer}).Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", parsed.Subject)
	require.Equal(t, 2, parsed.Version)
}

func TestHS256RejectsShortSecret(t *testing.T) {
	_, err := jwtx.NewSignerHS256([]byte("short"))
	require.Error(t, err)
}

func TestHS256VerifyFailures(t *testing.T) {
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)
	verifier := jwtx.NewVerifierHS256(testSecret, jwtx.VerifyOptions{Issuer: exampleIssuer})

	t.Run("expired", func(t *testing.T) {
		past := time.Now().UTC().Add(-2 * time.Hour)
		token, err := signer.Sign(jwtx.NewClaims("user-1", "user", 0, time.Hour, exampleIssuer, past))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("tampered signature", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewClaims("user-1", "user", 0, time.Hour, exampleIssuer, time.Now().UTC()))
		require.NoError(t, err)

		other := jwtx.NewVerifierHS256([]byte("ffffffffffffffffffffffffffffffff"), jwtx.VerifyOptions{})
		_, err = other.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("missing expiry", func(t *testing.T) {
		c := jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", Issuer: exampleIssuer}}
		token, err := signer.Sign(c)
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.Error(t, err)
	})

	t.Run("alg none", func(t *testing.T) {
		c := jwtx.NewClaims("user-1", "user", 0, time.Hour, exampleIssuer, time.Now().UTC())
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(token, "."))

		_, err = verifier.Verify(token)
		require.Error(t, err)
	})
}
