// Package admission implements the gateway's admission predicates:
// SSRF guard and x402-upstream probe (both run at route-register time),
// plus the per-request agent blocklist and API-key checks (spec.md
// §4.9).
package admission

import (
	"fmt"
	"net"
	"net/url"
)

// SSRFError explains why a backend_url was refused.
type SSRFError struct {
	Host   string
	Reason string
}

func (e *SSRFError) Error() string {
	return fmt.Sprintf("admission: backend host %q rejected: %s", e.Host, e.Reason)
}

// CheckSSRF resolves backendURL's host and refuses anything that
// doesn't look like a public address: loopback, link-local, RFC1918,
// CGNAT, multicast, or otherwise reserved, for both IPv4 and IPv6.
// skip bypasses the check entirely (the route's `_skipSsrf` admin
// escape hatch, spec.md §9).
func CheckSSRF(backendURL string, skip bool) error {
	if skip {
		return nil
	}

	u, err := url.Parse(backendURL)
	if err != nil {
		return &SSRFError{Host: backendURL, Reason: "unparseable URL"}
	}
	host := u.Hostname()
	if host == "" {
		return &SSRFError{Host: backendURL, Reason: "missing host"}
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// Grounded on spec.md §4.9's probe semantics: an unresolvable
		// host is refused rather than silently allowed, since SSRF is
		// a deny-by-default check (the opposite of the probe's
		// unknown-means-allow rule for transport errors).
		return &SSRFError{Host: host, Reason: "DNS resolution failed"}
	}

	for _, ip := range ips {
		if reason := classifyPrivate(ip); reason != "" {
			return &SSRFError{Host: host, Reason: reason}
		}
	}
	return nil
}

// classifyPrivate returns a non-empty reason if ip falls in a range a
// gateway must never proxy to, empty otherwise.
func classifyPrivate(ip net.IP) string {
	switch {
	case ip.IsLoopback():
		return "loopback address"
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return "link-local address"
	case ip.IsPrivate():
		return "private (RFC1918/ULA) address"
	case ip.IsMulticast():
		return "multicast address"
	case ip.IsUnspecified():
		return "unspecified address"
	case isCGNAT(ip):
		return "carrier-grade NAT (RFC6598) address"
	case isReservedV4(ip):
		return "reserved address"
	default:
		return ""
	}
}

// cgnatBlock is 100.64.0.0/10, per RFC 6598. net.IP has no built-in
// classifier for this range, unlike the other classes above.
var cgnatBlock = mustParseCIDR("100.64.0.0/10")

func isCGNAT(ip net.IP) bool {
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	return cgnatBlock.Contains(v4)
}

// reservedV4Blocks covers IANA special-purpose ranges not already
// classified by net.IP's own methods (RFC 5735 "this network",
// documentation ranges, benchmarking).
var reservedV4Blocks = []*net.IPNet{
	mustParseCIDR("0.0.0.0/8"),
	mustParseCIDR("192.0.0.0/24"),
	mustParseCIDR("192.0.2.0/24"),
	mustParseCIDR("198.18.0.0/15"),
	mustParseCIDR("198.51.100.0/24"),
	mustParseCIDR("203.0.113.0/24"),
	mustParseCIDR("240.0.0.0/4"),
}

func isReservedV4(ip net.IP) bool {
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	for _, block := range reservedV4Blocks {
		if block.Contains(v4) {
			return true
		}
	}
	return false
}

func mustParseCIDR(cidr string) *net.IPNet {
	_, block, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(err)
	}
	return block
}
