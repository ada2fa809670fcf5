// Package mandate verifies AP2 spending mandates presented on the
// X-Mandate header: expiry, tool allowlist, confirmation threshold,
// daily budget, and the EIP-191 owner signature, in that
// fixed order (spec-mandated: each failure short-circuits the rest).
package mandate

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Mandate is the decoded X-Mandate payload.
type Mandate struct {
	MandateID                     string   `json:"mandate_id"`
	OwnerPubkey                   string   `json:"owner_pubkey"`
	ExpiresAt                     time.Time `json:"expires_at"`
	MaxSpendUSDCPerDay            string   `json:"max_spend_usdc_per_day"`
	AllowlistedToolIDs            []string `json:"allowlisted_tool_ids"`
	RequireUserConfirmForPriceOver string  `json:"require_user_confirm_for_price_over,omitempty"`
	Signature                     string   `json:"signature"`
}

// Decode parses a base64-encoded JSON mandate from the X-Mandate header.
func Decode(header string) (*Mandate, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("mandate: invalid base64: %w", err)
	}
	var m Mandate
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("mandate: invalid JSON: %w", err)
	}
	return &m, nil
}

// AllowsTool reports whether toolID is in the mandate's allowlist.
func (m *Mandate) AllowsTool(toolID string) bool {
	for _, id := range m.AllowlistedToolIDs {
		if id == toolID {
			return true
		}
	}
	return false
}

// CanonicalPayload builds the deterministic, byte-exact preimage the
// owner signed: every field but Signature, tool IDs sorted and
// deduplicated so two semantically equal mandates always produce the
// same bytes regardless of input ordering, rendered as sorted-key JSON
// with no whitespace (Go's encoding/json sorts map[string] keys, which
// this relies on).
func (m *Mandate) CanonicalPayload() ([]byte, error) {
	tools := append([]string(nil), m.AllowlistedToolIDs...)
	sort.Strings(tools)
	tools = dedupe(tools)

	fields := map[string]interface{}{
		"allowlisted_tool_ids":                  tools,
		"expires_at":                             m.ExpiresAt.UTC().Format(time.RFC3339),
		"mandate_id":                             m.MandateID,
		"max_spend_usdc_per_day":                 m.MaxSpendUSDCPerDay,
		"owner_pubkey":                           strings.ToLower(m.OwnerPubkey),
		"require_user_confirm_for_price_over": m.RequireUserConfirmForPriceOver,
	}
	return json.Marshal(fields)
}

func dedupe(sorted []string) []string {
	out := sorted[:0:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}
