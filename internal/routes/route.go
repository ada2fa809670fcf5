// Package routes implements the gateway's route table: compiling
// (method, path) patterns into matchable rules and resolving inbound
// requests against them.
package routes

import "fmt"

// Auth describes a single header to inject into the upstream request.
type Auth struct {
	Header string `json:"header" yaml:"header"`
	Value  string `json:"value" yaml:"value"`
}

// Provider is the upstream backend a route forwards to.
type Provider struct {
	ID         string `json:"id" yaml:"id"`
	BackendURL string `json:"backend_url" yaml:"backend_url"`
	Auth       *Auth  `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// Rule is an immutable-once-registered route definition. Mutation happens
// only via admin operations that replace the whole table.
type Rule struct {
	Method      string   `json:"method" yaml:"method"`
	Path        string   `json:"path" yaml:"path"`
	ToolID      string   `json:"tool_id" yaml:"tool_id"`
	Price       string   `json:"price" yaml:"price"` // decimal USDC, preserves precision
	Provider    Provider `json:"provider" yaml:"provider"`
	Group       string   `json:"group,omitempty" yaml:"group,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Restricted  bool     `json:"restricted,omitempty" yaml:"restricted,omitempty"`

	// SkipSSRFCheck is the `_skipSsrf` admin escape hatch: relaxes the
	// invariant that backend_url must resolve to a public address.
	SkipSSRFCheck bool `json:"skip_ssrf_check,omitempty" yaml:"skip_ssrf_check,omitempty"`
	// SkipUpstreamProbe bypasses the x402-upstream probe at register time.
	SkipUpstreamProbe bool `json:"skip_upstream_probe,omitempty" yaml:"skip_upstream_probe,omitempty"`
}

// Validate enforces the RouteRule invariants that don't require network
// access (SSRF resolution and the upstream probe are separate admission
// predicates run by the caller before Add/compile succeeds for real).
func (r Rule) Validate() error {
	if r.Method == "" {
		return fmt.Errorf("routes: method required")
	}
	if r.Path == "" || r.Path[0] != '/' {
		return fmt.Errorf("routes: path must start with '/'")
	}
	if r.ToolID == "" {
		return fmt.Errorf("routes: tool_id required")
	}
	if r.Provider.BackendURL == "" {
		return fmt.Errorf("routes: provider.backend_url required")
	}
	return nil
}

// Document is the routes file format: {"routes": [...]}.
type Document struct {
	Routes []Rule `json:"routes"`
}
