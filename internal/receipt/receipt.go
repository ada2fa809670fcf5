// Package receipt builds and stores the structured receipt emitted for
// every admitted request, per spec.md §3/§4.7.
package receipt

import (
	"time"

	"github.com/x402gateway/gateway/internal/errors"
	"github.com/x402gateway/gateway/internal/money"
)

// MandateVerdict mirrors internal/mandate.Verdict without importing
// that package, keeping the receipt model dependency-free of the
// mandate verifier's internals.
type MandateVerdict string

const (
	MandateApproved MandateVerdict = "APPROVED"
	MandateDenied   MandateVerdict = "DENIED"
	MandateSkipped  MandateVerdict = "SKIPPED"
)

// Outcome is the receipt's closed top-level result enum.
type Outcome string

const (
	OutcomeSuccess  Outcome = "SUCCESS"
	OutcomeDenied   Outcome = "DENIED"
	OutcomeError    Outcome = "ERROR"
	OutcomeRefunded Outcome = "REFUNDED"
)

// Receipt is emitted for every admitted request, whether accepted,
// denied, or errored (spec.md §3).
type Receipt struct {
	RequestID            string            `json:"request_id"`
	ToolID               string            `json:"tool_id"`
	ProviderID           string            `json:"provider_id"`
	Endpoint             string            `json:"endpoint"`
	Method               string            `json:"method"`
	Timestamp            time.Time         `json:"timestamp"`
	PriceUSDC            money.Money       `json:"price_usdc"`
	Chain                string            `json:"chain"`
	MandateID            string            `json:"mandate_id,omitempty"`
	MandateHash          string            `json:"mandate_hash,omitempty"`
	MandateVerdict       MandateVerdict    `json:"mandate_verdict"`
	ReasonCode           errors.ReasonCode `json:"reason_code"`
	PaymentTxHash        string            `json:"payment_tx_hash,omitempty"`
	FacilitatorReceiptID string            `json:"facilitator_receipt_id,omitempty"`
	RequestHash          string            `json:"request_hash"`
	ResponseHash         string            `json:"response_hash,omitempty"`
	LatencyMS            int64             `json:"latency_ms,omitempty"`
	Outcome              Outcome           `json:"outcome"`
	Explanation          string            `json:"explanation,omitempty"`
}
