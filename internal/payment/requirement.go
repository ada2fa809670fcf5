// Package payment implements the x402 payment coordinator: quoting a
// payment requirement from a matched route, verifying an inbound
// X-Payment header against a facilitator, and settling after a
// successful upstream proxy call.
package payment

import (
	"github.com/x402gateway/gateway/internal/routes"
)

// Requirement is the JSON body returned on a 402, one entry of the
// "accepts" array described in spec.md §6.3.
type Requirement struct {
	Scheme  string `json:"scheme"`
	Price   string `json:"price"`
	Network string `json:"network"`
	PayTo   string `json:"payTo"`
}

// Quote is the full 402 response body.
type Quote struct {
	Accepts     []Requirement `json:"accepts"`
	Description string        `json:"description"`
	MimeType    string        `json:"mimeType"`
}

// BuildRequirement constructs the single "exact" requirement for a
// matched route, priced in the asset's major-unit decimal string.
func BuildRequirement(rule routes.Rule, network, payTo string) Requirement {
	return Requirement{
		Scheme:  "exact",
		Price:   rule.Price,
		Network: network,
		PayTo:   payTo,
	}
}

// BuildQuote wraps a requirement into the 402 body.
func BuildQuote(rule routes.Rule, network, payTo string) Quote {
	return Quote{
		Accepts:     []Requirement{BuildRequirement(rule, network, payTo)},
		Description: rule.Description,
		MimeType:    "application/json",
	}
}
