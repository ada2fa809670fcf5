// Package ratelimit provides per-agent-address and per-IP request
// throttling middleware, grounded on internal/ratelimit's
// httprate-based global/wallet/IP limiter family, collapsed from its
// three independent limiters plus apikey-tier exemptions down to two
// (agent-address, IP fallback) since the gateway has a single
// RATE_LIMIT_PER_MINUTE knob and no tiered-partner concept.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/x402gateway/gateway/internal/metrics"
)

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	Metrics *metrics.Metrics
}

type rateLimitResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// DefaultConfig returns a Config built from a requests-per-minute
// figure, the unit spec.md's RATE_LIMIT_PER_MINUTE env var is
// expressed in.
func DefaultConfig(perMinute int) Config {
	return Config{
		Enabled: perMinute > 0,
		Limit:   perMinute,
		Window:  time.Minute,
	}
}

func limitHandler(windowSeconds int, extractIdentifier func(*http.Request) string, m *metrics.Metrics) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		identifier := "unknown"
		if extractIdentifier != nil {
			if id := extractIdentifier(r); id != "" {
				identifier = id
			}
		}
		if m != nil {
			m.ObserveRateLimitHit(identifier)
		}

		resp := rateLimitResponse{
			Error:             "rate_limit_exceeded",
			Message:           "rate limit exceeded, please try again later",
			RetryAfterSeconds: windowSeconds,
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", fmt.Sprintf("%d", windowSeconds))
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// AgentLimiter rate-limits by the caller's X-Agent-Address header,
// falling back to remote IP when the header is absent.
func AgentLimiter(cfg Config) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		cfg.Limit,
		cfg.Window,
		httprate.WithKeyFuncs(agentKeyExtractor),
		httprate.WithLimitHandler(
			limitHandler(int(cfg.Window.Seconds()), extractAgentAddress, cfg.Metrics),
		),
	)
}

func agentKeyExtractor(r *http.Request) (string, error) {
	if agent := extractAgentAddress(r); agent != "" {
		return "agent:" + agent, nil
	}
	return httprate.KeyByIP(r)
}

func extractAgentAddress(r *http.Request) string {
	return r.Header.Get("X-Agent-Address")
}
