package payment

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// scopeClaims binds a facilitator bearer token to a single call
// (method+host+path), so a captured token is useless for anything but
// the request it was minted for.
type scopeClaims struct {
	jwt.RegisteredClaims
	Method string `json:"method"`
	Host   string `json:"host"`
	Path   string `json:"path"`
}

// JWTMinter issues short-lived HMAC-signed bearer tokens for
// facilitator calls. Grounded on kshinn-umbra-gateway's x402/token.go
// TokenManager, which signs similarly-shaped scoped JWTs with
// golang-jwt/jwt/v5; the per-call counter/credit-store half of that
// file has no equivalent here since spec.md's facilitator auth is
// per-request scoping, not a metered allowance.
type JWTMinter struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTMinter builds a minter signing with the given HMAC secret.
// ttl is the token's validity window (short — minted fresh per call).
func NewJWTMinter(secret []byte, ttl time.Duration) *JWTMinter {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &JWTMinter{secret: secret, ttl: ttl}
}

// Mint signs a token scoped to method+host+path.
func (m *JWTMinter) Mint(method, host, path string) (string, error) {
	now := time.Now()
	claims := &scopeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Method: method,
		Host:   host,
		Path:   path,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
