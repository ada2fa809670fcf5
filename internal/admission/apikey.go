package admission

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyChecker validates the gateway-level API key (spec.md §4.9,
// §6.1): either an `Authorization: Bearer <key>` or `X-Api-Key`
// header, compared in constant time. Unlike internal/apikey's
// multi-tier rate-limit-exemption map, this is a single shared secret
// with binary admit/deny semantics — the gateway has one tenant, not
// a tiered customer base.
type APIKeyChecker struct {
	key []byte
}

// NewAPIKeyChecker builds a checker for the given key. An empty key
// disables the check (Allow always returns true).
func NewAPIKeyChecker(key string) *APIKeyChecker {
	return &APIKeyChecker{key: []byte(key)}
}

// Allow reports whether the request carries the configured key.
func (c *APIKeyChecker) Allow(r *http.Request) bool {
	if len(c.key) == 0 {
		return true
	}

	candidate := r.Header.Get("X-Api-Key")
	if candidate == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			candidate = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if candidate == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(candidate), c.key) == 1
}
