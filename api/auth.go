package api

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
)

type SupabaseJWT struct {
	Audience    string       `json:"aud"`
	Email       *string      `json:"email"`
	ExpiresAt   int64        `json:"exp"`
	IssuedAt    int64        `json:"iat"`
	IsAnonymous bool         `json:"is_anonymous"`
	Issuer      string       `json:"iss"`
	Role        string       `json:"role"`
	SessionID   string       `json:"session_id"`
	Subject     string       `json:"sub"`
	AppMetadata AppMetadata  `json:"app_metadata"`
	UserData    UserMetadata `json:"user_metadata"`
}

type AppMetadata struct {
	Provider  string   `json:"provider"`
	Providers []string `json:"providers"`
}

type UserMetadata struct {
	EmailVerified bool `json:"email_verified"`
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

// just the JWK fields ES256 verification needs
type jwkKey struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	Kid string `json:"kid"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// tokenVerifier accepts HS256 tokens signed with the shared secret and
// ES256 tokens whose key is published at the issuer's JWKS url
type tokenVerifier struct {
	secret     string
	httpClient *http.Client
	now        func() time.Time

	mutex sync.RWMutex
	// jwksURL + "|" + kid
	keys map[string]*ecdsa.PublicKey
}

func newTokenVerifier(secret string) *tokenVerifier {
	return &tokenVerifier{
		secret:     secret,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		now:        time.Now,
		keys:       map[string]*ecdsa.PublicKey{},
	}
}

func base64URLDecodeToBigInt(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func (v *tokenVerifier) es256Key(jwksURL string, kid string) (*ecdsa.PublicKey, error) {
	cacheKey := jwksURL + "|" + kid
	v.mutex.RLock()
	k, ok := v.keys[cacheKey]
	v.mutex.RUnlock()
	if ok {
		return k, nil
	}

	resp, err := v.httpClient.Get(jwksURL) // #nosec G107 - url comes from the token issuer
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch JWKS: http %d", resp.StatusCode)
	}

	jwks := jwksResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	for _, k := range jwks.Keys {
		if k.Kid != kid {
			continue
		}
		if k.Kty != "EC" || k.Crv != "P-256" {
			return nil, fmt.Errorf("unsupported JWK key type/curve: kty=%s crv=%s", k.Kty, k.Crv)
		}
		x, err := base64URLDecodeToBigInt(k.X)
		if err != nil {
			return nil, fmt.Errorf("failed to decode JWK x: %w", err)
		}
		y, err := base64URLDecodeToBigInt(k.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to decode JWK y: %w", err)
		}
		pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}

		v.mutex.Lock()
		v.keys[cacheKey] = pub
		v.mutex.Unlock()
		return pub, nil
	}

	return nil, fmt.Errorf("kid not found in JWKS: %s", kid)
}

func decodeUnverified(jwtStr string) (map[string]any, *SupabaseJWT, error) {
	parts := strings.Split(jwtStr, ".")
	if len(parts) < 2 {
		return nil, nil, fmt.Errorf("invalid JWT format")
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode JWT header: %w", err)
	}
	header := map[string]any{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, nil, fmt.Errorf("failed to parse JWT header: %w", err)
	}

	claimsBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode JWT claims: %w", err)
	}
	claims := SupabaseJWT{}
	if err := json.Unmarshal(claimsBytes, &claims); err != nil {
		return nil, nil, fmt.Errorf("failed to parse JWT claims: %w", err)
	}

	return header, &claims, nil
}

func (v *tokenVerifier) parse(jwtStr string) (*SupabaseJWT, error) {
	token, err := jwt.Parse(jwtStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.secret), nil
	})

	if err != nil {
		token, err = v.parseES256(jwtStr, err)
		if err != nil {
			return nil, err
		}
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("failed to parse claims")
	}
	claimsJSON, err := json.Marshal(mapClaims)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claims: %w", err)
	}
	claims := SupabaseJWT{}
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claims: %w", err)
	}

	if v.now().UTC().Unix() > claims.ExpiresAt {
		return nil, fmt.Errorf("jwt is expired")
	}
	return &claims, nil
}

// parseES256 is the fallback for tokens that aren't HS*. hsErr is
// returned if the token doesn't look like ES256 either
func (v *tokenVerifier) parseES256(jwtStr string, hsErr error) (*jwt.Token, error) {
	header, unverified, err := decodeUnverified(jwtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", hsErr)
	}
	if alg, _ := header["alg"].(string); alg != "ES256" {
		return nil, fmt.Errorf("failed to parse token: %w", hsErr)
	}
	kid, _ := header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("failed to parse token: missing kid")
	}
	if unverified.Issuer == "" {
		return nil, fmt.Errorf("failed to parse token: missing iss")
	}

	jwksURL := strings.TrimRight(unverified.Issuer, "/") + "/.well-known/jwks.json"
	token, err := jwt.Parse(jwtStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.es256Key(jwksURL, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return token, nil
}
