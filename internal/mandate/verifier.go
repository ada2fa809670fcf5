package mandate

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/x402gateway/gateway/internal/errors"
	"github.com/x402gateway/gateway/internal/money"
	"github.com/x402gateway/gateway/internal/spend"
)

// Verdict is the mandate verifier's outcome.
type Verdict string

const (
	VerdictApproved Verdict = "APPROVED"
	VerdictDenied   Verdict = "DENIED"
	VerdictSkipped  Verdict = "SKIPPED"
)

// ConfirmHeader is the request header a caller sets to acknowledge a
// price above the mandate's require_user_confirm_for_price_over
// threshold (spec.md §4.4 step 3 names only the behavior, not a header;
// this is the gateway's chosen name for it).
const ConfirmHeader = "X-Mandate-Confirm"

// Verifier checks mandates against spec.md §4.4's fixed check order.
// It does not mutate spend state: budget is checked against the
// tracker's current running total only; the pipeline performs the
// atomic claim (internal/spend.Tracker.CheckAndAdd) after payment
// verification succeeds and before the upstream call.
type Verifier struct {
	tracker *spend.Tracker
	nowFn   func() time.Time
}

// NewVerifier builds a verifier backed by the given spend tracker.
func NewVerifier(tracker *spend.Tracker) *Verifier {
	return &Verifier{tracker: tracker, nowFn: time.Now}
}

// Verify runs the fixed check sequence. mandate == nil means no
// X-Mandate header was presented, which yields SKIPPED (mandates are
// optional per spec.md).
func (v *Verifier) Verify(m *Mandate, toolID string, price money.Money, confirmed bool) (Verdict, errors.ReasonCode) {
	if m == nil {
		return VerdictSkipped, errors.ReasonOK
	}

	now := v.nowFn()
	if !m.ExpiresAt.After(now) {
		return VerdictDenied, errors.ReasonMandateExpired
	}

	if !m.AllowsTool(toolID) {
		return VerdictDenied, errors.ReasonEndpointNotAllowlisted
	}

	if m.RequireUserConfirmForPriceOver != "" {
		threshold, err := money.FromMajor(price.Asset, m.RequireUserConfirmForPriceOver)
		if err == nil && price.GreaterThan(threshold) && !confirmed {
			return VerdictDenied, errors.ReasonMandateConfirmRequired
		}
	}

	cap, err := money.FromMajor(price.Asset, m.MaxSpendUSDCPerDay)
	if err != nil {
		return VerdictDenied, errors.ReasonMandateBudgetExceeded
	}
	spent := v.tracker.GetSpent(m.MandateID)
	projected, err := spent.Add(price)
	if err != nil || projected.GreaterThan(cap) {
		return VerdictDenied, errors.ReasonMandateBudgetExceeded
	}

	if err := v.checkSignature(m); err != nil {
		return VerdictDenied, errors.ReasonInvalidSignature
	}

	return VerdictApproved, errors.ReasonOK
}

// checkSignature recovers the EIP-191 personal-message signer from the
// mandate's canonical payload and compares it, case-insensitively, to
// owner_pubkey.
func (v *Verifier) checkSignature(m *Mandate) error {
	payload, err := m.CanonicalPayload()
	if err != nil {
		return err
	}
	digest := accounts.TextHash(payload)

	sig, err := hexutil.Decode(normalizeHex(m.Signature))
	if err != nil || len(sig) != 65 {
		return errSig("malformed signature")
	}

	sigCopy := append([]byte(nil), sig...)
	if sigCopy[64] >= 27 {
		sigCopy[64] -= 27 // ecrecover expects a 0/1 recovery id
	}

	pubBytes, err := crypto.Ecrecover(digest, sigCopy)
	if err != nil {
		return err
	}
	pub, err := crypto.UnmarshalPubkey(pubBytes)
	if err != nil {
		return err
	}
	recovered := crypto.PubkeyToAddress(*pub).Hex()

	if !strings.EqualFold(recovered, m.OwnerPubkey) {
		return errSig("signature mismatch")
	}
	return nil
}

func normalizeHex(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

type sigError string

func (e sigError) Error() string { return string(e) }

func errSig(msg string) error { return sigError(msg) }
