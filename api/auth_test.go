package api

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
)

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func Test_tokenVerifier_parse(t *testing.T) {
	verifier := newTokenVerifier("shared-secret")
	exp := time.Now().Add(time.Hour).Unix()

	t.Run("hs256 with the shared secret", func(t *testing.T) {
		claims, err := verifier.parse(signHS256(t, "shared-secret", jwt.MapClaims{"sub": "u1", "exp": exp, "role": "authenticated"}))
		require.NoError(t, err)
		require.Equal(t, "u1", claims.Subject)
		require.Equal(t, "authenticated", claims.Role)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := verifier.parse(signHS256(t, "other-secret", jwt.MapClaims{"sub": "u1", "exp": exp}))
		require.Error(t, err)
	})

	t.Run("expired against the verifier clock", func(t *testing.T) {
		late := newTokenVerifier("shared-secret")
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.parse(signHS256(t, "shared-secret", jwt.MapClaims{"sub": "u1", "exp": exp}))
		require.ErrorContains(t, err, "expired")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.parse("not-a-token")
		require.Error(t, err)
	})
}

func Test_tokenVerifier_parseES256(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	fetches := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/.well-known/jwks.json", r.URL.Path)
		atomic.AddInt32(&fetches, 1)
		_ = json.NewEncoder(w).Encode(jwksResponse{Keys: []jwkKey{{
			Kty: "EC",
			Crv: "P-256",
			Kid: "k1",
			X:   base64.RawURLEncoding.EncodeToString(key.X.Bytes()),
			Y:   base64.RawURLEncoding.EncodeToString(key.Y.Bytes()),
		}}})
	}))
	defer server.Close()

	sign := func(kid string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
			"sub": "u2",
			"iss": server.URL + "/auth/v1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		token.Header["kid"] = kid
		s, err := token.SignedString(key)
		require.NoError(t, err)
		return s
	}

	verifier := newTokenVerifier("shared-secret")
	for i := 0; i < 3; i++ {
		claims, err := verifier.parse(sign("k1"))
		require.NoError(t, err)
		require.Equal(t, "u2", claims.Subject)
	}
	// the key is cached after the first fetch
	require.Equal(t, int32(1), atomic.LoadInt32(&fetches))

	_, err = verifier.parse(sign("rotated"))
	require.ErrorContains(t, err, "kid not found")
}
