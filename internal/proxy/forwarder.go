// Package proxy forwards admitted requests to a route's upstream
// backend with strict header hygiene: hop-by-hop and internal gateway
// headers are stripped, provider auth is injected, everything else is
// preserved.
package proxy

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/x402gateway/gateway/internal/routes"
)

// hopByHop are headers meaningful only for one network hop and never
// forwarded, per RFC 7230 §6.1 plus the gateway-specific additions
// spec.md §4.6 names.
var hopByHop = map[string]struct{}{
	"Host":              {},
	"Connection":        {},
	"Transfer-Encoding":  {},
	"Content-Length":    {},
	"Keep-Alive":        {},
	"Upgrade":           {},
	"Proxy-Authenticate": {},
	"Proxy-Authorization": {},
	"Te":                {},
	"Trailer":           {},
}

// internalHeaders never reach the upstream: they carry gateway-only
// state (idempotency, mandate, payment, receipt) an upstream has no
// business seeing. Grounded on kshinn-umbra-gateway/proxy/rpc.go's
// Director, which strips the same class of headers (Authorization,
// Payment-Signature, X-Payment, X-Forwarded-*) before forwarding,
// generalized here to the gateway's full internal-header set.
var internalHeaders = map[string]struct{}{
	"X-Request-Idempotency-Key": {},
	"X-Mandate":                 {},
	"X-Payment":                 {},
	"X-Receipt":                 {},
}

// Result is what the pipeline needs from a forwarded call to build a
// receipt: the upstream's status/headers/body plus a hash of the body
// (response_hash in spec.md §3), and whether the failure (if any) was
// a transport failure rather than an upstream application error.
type Result struct {
	StatusCode      int
	Headers         http.Header
	Body            []byte
	ResponseHash    string
	TransportFailed bool
	LatencyMS       int64
}

// Forwarder issues the upstream call for a matched route.
type Forwarder struct {
	client *http.Client
}

// NewForwarder builds a forwarder with the given per-request timeout.
func NewForwarder(timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Forwarder{client: &http.Client{Timeout: timeout}}
}

// Forward builds backend_url+path+query, issues method with the
// filtered header set and body, and reads the full response so it can
// be hashed for the receipt. A transport-level failure (DNS, connect,
// TLS) is reported via Result.TransportFailed rather than as an error,
// since spec.md treats it as UPSTREAM_ERROR_NO_CHARGE, not a payment
// failure.
func (f *Forwarder) Forward(ctx context.Context, provider routes.Provider, method, path, rawQuery string, headers http.Header, body []byte) Result {
	start := time.Now()

	url := provider.BackendURL + path
	if rawQuery != "" {
		url += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return Result{TransportFailed: true, LatencyMS: elapsedMS(start)}
	}
	req.Header = filterHeaders(headers)
	if provider.Auth != nil {
		req.Header.Set(provider.Auth.Header, provider.Auth.Value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{TransportFailed: true, LatencyMS: elapsedMS(start)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{TransportFailed: true, LatencyMS: elapsedMS(start)}
	}

	sum := sha256.Sum256(respBody)
	return Result{
		StatusCode:   resp.StatusCode,
		Headers:      resp.Header,
		Body:         respBody,
		ResponseHash: hex.EncodeToString(sum[:]),
		LatencyMS:    elapsedMS(start),
	}
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

// filterHeaders copies headers, dropping hop-by-hop and internal
// gateway headers and joining any remaining multi-valued header into
// a single comma-separated value, per spec.md §4.6's "preserve
// everything else verbatim, including multi-valued headers joined by
// ', '".
func filterHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, values := range in {
		canonical := http.CanonicalHeaderKey(key)
		if _, blocked := hopByHop[canonical]; blocked {
			continue
		}
		if _, blocked := internalHeaders[canonical]; blocked {
			continue
		}
		out.Set(canonical, strings.Join(values, ", "))
	}
	return out
}

// RequestHash hashes a canonical representation of an inbound request
// for replay fingerprinting (spec.md §3's request_hash).
func RequestHash(method, path string, body []byte) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\n%s\n", method, path)))
	bodySum := sha256.Sum256(body)
	combined := sha256.Sum256(append(sum[:], bodySum[:]...))
	return hex.EncodeToString(combined[:])
}
