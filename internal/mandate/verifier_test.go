package mandate

import (
	"crypto/ecdsa"
	"encoding/hex"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/x402gateway/gateway/internal/errors"
	"github.com/x402gateway/gateway/internal/money"
	"github.com/x402gateway/gateway/internal/spend"
)

// testKey generates a fresh key pair for signing fixtures.
func testKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	return key, addr
}

func sign(t *testing.T, key *ecdsa.PrivateKey, m *Mandate) string {
	t.Helper()
	payload, err := m.CanonicalPayload()
	if err != nil {
		t.Fatalf("CanonicalPayload() error = %v", err)
	}
	digest := accounts.TextHash(payload)
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatalf("crypto.Sign() error = %v", err)
	}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig)
}

func baseMandate(owner string, toolID string) *Mandate {
	return &Mandate{
		MandateID:          "mandate-1",
		OwnerPubkey:        owner,
		ExpiresAt:          time.Now().Add(time.Hour),
		MaxSpendUSDCPerDay: "5.00",
		AllowlistedToolIDs: []string{toolID},
	}
}

func TestVerifier_ApprovesValidMandate(t *testing.T) {
	key, addr := testKey(t)
	m := baseMandate(addr, "quote")
	m.Signature = sign(t, key, m)

	v := NewVerifier(spend.New())
	price, _ := money.FromMajor(money.MustGetAsset("USDC"), "0.01")

	verdict, reason := v.Verify(m, "quote", price, false)
	if verdict != VerdictApproved {
		t.Errorf("verdict = %v, want APPROVED (reason=%v)", verdict, reason)
	}
}

func TestVerifier_NilMandateIsSkipped(t *testing.T) {
	v := NewVerifier(spend.New())
	price, _ := money.FromMajor(money.MustGetAsset("USDC"), "0.01")

	verdict, _ := v.Verify(nil, "quote", price, false)
	if verdict != VerdictSkipped {
		t.Errorf("verdict = %v, want SKIPPED", verdict)
	}
}

func TestVerifier_ExpiredMandateDenied(t *testing.T) {
	key, addr := testKey(t)
	m := baseMandate(addr, "quote")
	m.ExpiresAt = time.Now().Add(-time.Minute)
	m.Signature = sign(t, key, m)

	v := NewVerifier(spend.New())
	price, _ := money.FromMajor(money.MustGetAsset("USDC"), "0.01")

	verdict, reason := v.Verify(m, "quote", price, false)
	if verdict != VerdictDenied || reason != errors.ReasonMandateExpired {
		t.Errorf("got (%v, %v), want (DENIED, MANDATE_EXPIRED)", verdict, reason)
	}
}

func TestVerifier_ToolNotAllowlistedDenied(t *testing.T) {
	key, addr := testKey(t)
	m := baseMandate(addr, "other-tool")
	m.Signature = sign(t, key, m)

	v := NewVerifier(spend.New())
	price, _ := money.FromMajor(money.MustGetAsset("USDC"), "0.01")

	verdict, reason := v.Verify(m, "quote", price, false)
	if verdict != VerdictDenied || reason != errors.ReasonEndpointNotAllowlisted {
		t.Errorf("got (%v, %v), want (DENIED, ENDPOINT_NOT_ALLOWLISTED)", verdict, reason)
	}
}

func TestVerifier_ConfirmThresholdRequiresHeaderWhenOverLimit(t *testing.T) {
	key, addr := testKey(t)
	m := baseMandate(addr, "quote")
	m.RequireUserConfirmForPriceOver = "1.00"
	m.Signature = sign(t, key, m)

	v := NewVerifier(spend.New())
	price, _ := money.FromMajor(money.MustGetAsset("USDC"), "2.00")

	verdict, reason := v.Verify(m, "quote", price, false)
	if verdict != VerdictDenied || reason != errors.ReasonMandateConfirmRequired {
		t.Errorf("got (%v, %v), want (DENIED, MANDATE_CONFIRM_REQUIRED)", verdict, reason)
	}

	verdict, reason = v.Verify(m, "quote", price, true)
	if verdict != VerdictApproved {
		t.Errorf("with confirmed=true got (%v, %v), want APPROVED", verdict, reason)
	}
}

func TestVerifier_BudgetExceededDenied(t *testing.T) {
	key, addr := testKey(t)
	m := baseMandate(addr, "quote")
	m.MaxSpendUSDCPerDay = "1.00"
	m.Signature = sign(t, key, m)

	tracker := spend.New()
	tracker.Record("mandate-1", mustUSDC("0.99"))

	v := NewVerifier(tracker)
	price, _ := money.FromMajor(money.MustGetAsset("USDC"), "0.02")

	verdict, reason := v.Verify(m, "quote", price, false)
	if verdict != VerdictDenied || reason != errors.ReasonMandateBudgetExceeded {
		t.Errorf("got (%v, %v), want (DENIED, MANDATE_BUDGET_EXCEEDED)", verdict, reason)
	}
}

func TestVerifier_WrongSignerDenied(t *testing.T) {
	_, addr := testKey(t)
	otherKey, _ := testKey(t)

	m := baseMandate(addr, "quote")
	m.Signature = sign(t, otherKey, m)

	v := NewVerifier(spend.New())
	price, _ := money.FromMajor(money.MustGetAsset("USDC"), "0.01")

	verdict, reason := v.Verify(m, "quote", price, false)
	if verdict != VerdictDenied || reason != errors.ReasonInvalidSignature {
		t.Errorf("got (%v, %v), want (DENIED, INVALID_SIGNATURE)", verdict, reason)
	}
}

func TestMandate_CanonicalPayloadIsOrderIndependent(t *testing.T) {
	m1 := baseMandate("0xabc", "tool-b")
	m1.AllowlistedToolIDs = []string{"tool-b", "tool-a"}
	m2 := baseMandate("0xabc", "tool-a")
	m2.AllowlistedToolIDs = []string{"tool-a", "tool-b"}
	m2.ExpiresAt = m1.ExpiresAt

	p1, err := m1.CanonicalPayload()
	if err != nil {
		t.Fatalf("CanonicalPayload() error = %v", err)
	}
	p2, err := m2.CanonicalPayload()
	if err != nil {
		t.Fatalf("CanonicalPayload() error = %v", err)
	}
	if string(p1) != string(p2) {
		t.Errorf("canonical payloads differ for equal-content mandates:\n%s\n%s", p1, p2)
	}
}

func mustUSDC(major string) money.Money {
	m, err := money.FromMajor(money.MustGetAsset("USDC"), major)
	if err != nil {
		panic(err)
	}
	return m
}
