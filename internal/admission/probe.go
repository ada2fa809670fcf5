package admission

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

// placeholderSegment matches a ":name"-style path parameter, per
// spec.md §4.9's "':name' segments replaced by a placeholder".
var placeholderSegment = regexp.MustCompile(`:[^/]+`)

// ProbeResult is the outcome of probing a candidate upstream for an
// existing x402 paywall.
type ProbeResult struct {
	Blocked bool
	Reason  string
}

// ProbeX402Upstream GETs backendURL+probePath (with ":name" segments
// replaced by "1") and refuses the route if the upstream itself
// answers 402 with a payment-required header — registering such a
// route would let the gateway charge on top of an already-paid
// upstream. Transport errors are "unknown", and per spec.md §4.9 are
// treated as allow, not deny: the gateway fails open on a probe it
// cannot complete, rather than blocking route registration on a
// flaky or momentarily unreachable upstream.
func ProbeX402Upstream(ctx context.Context, client *http.Client, backendURL, probePath string, timeout time.Duration) ProbeResult {
	if probePath == "" {
		return ProbeResult{}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	resolvedPath := placeholderSegment.ReplaceAllString(probePath, "1")
	url := backendURL + resolvedPath

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return ProbeResult{}
	}

	resp, err := client.Do(req)
	if err != nil {
		return ProbeResult{}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired && resp.Header.Get("payment-required") != "" {
		return ProbeResult{
			Blocked: true,
			Reason:  fmt.Sprintf("upstream %s already requires payment", url),
		}
	}
	return ProbeResult{}
}
