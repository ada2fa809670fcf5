// Package pipeline implements the gateway's request-admission pipeline:
// the fixed-order stage sequence (admission predicates, route match,
// replay check, mandate verify, payment verify, upstream proxy,
// settlement, receipt emit) that every /api/* request runs through,
// per spec.md §4.8. Grounded on internal/paywall.Authorize's
// stage-by-stage shape (check, short-circuit with a typed error, log,
// record, move on) generalized from a single Stripe/x402 branch into
// the gateway's nine-stage chain.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/x402gateway/gateway/internal/admission"
	"github.com/x402gateway/gateway/internal/errors"
	"github.com/x402gateway/gateway/internal/logger"
	"github.com/x402gateway/gateway/internal/mandate"
	"github.com/x402gateway/gateway/internal/metrics"
	"github.com/x402gateway/gateway/internal/money"
	"github.com/x402gateway/gateway/internal/notifier"
	"github.com/x402gateway/gateway/internal/payment"
	"github.com/x402gateway/gateway/internal/proxy"
	"github.com/x402gateway/gateway/internal/receipt"
	"github.com/x402gateway/gateway/internal/replay"
	"github.com/x402gateway/gateway/internal/routes"
	"github.com/x402gateway/gateway/internal/rpcutil"
	"github.com/x402gateway/gateway/internal/spend"
)

// Controller wires every stage's collaborator together and runs the
// fixed-order pipeline for one inbound request.
type Controller struct {
	Routes      *routes.Table
	Replay      *replay.Store
	Verifier    *mandate.Verifier
	Spend       *spend.Tracker
	Coordinator *payment.Coordinator
	Forwarder   *proxy.Forwarder
	Receipts    *receipt.Store
	Blocklist   *admission.Blocklist
	APIKeys     *admission.APIKeyChecker
	Network     string // CAIP-2, e.g. "eip155:8453"

	// Metrics and Notifier are optional (nil-safe): Metrics' own
	// ObserveX helpers no-op on a nil receiver, and a nil Notifier is
	// treated the same as notifier.NoopNotifier.
	Metrics  *metrics.Metrics
	Notifier notifier.Notifier
}

// denial is the internal short-circuit signal a stage raises; the top
// level handler turns it into an HTTP response plus a receipt.
type denial struct {
	reason      errors.ReasonCode
	status      int
	explanation string
}

func deny(reason errors.ReasonCode, explanation string) *denial {
	return &denial{reason: reason, status: reason.HTTPStatus(), explanation: explanation}
}

// requestState accumulates what each stage learns, so the final
// receipt builder has everything without re-deriving it.
type requestState struct {
	requestID            string
	toolID               string
	rule                 routes.Rule
	start                time.Time
	mandate              *mandate.Mandate
	mandateHash          string
	verdict              mandate.Verdict
	price                money.Money
	payer                string
	txHash               string
	facilitatorReceiptID string
	requestHash          string
	responseHash         string
}

// ServeHTTP runs the full pipeline for one /api/* request.
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	state := &requestState{requestID: uuid.NewString(), start: time.Now()}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		c.writeDenial(ctx, w, state, deny(errors.ReasonInternalError, "failed to read request body"))
		return
	}
	state.requestHash = proxy.RequestHash(r.Method, r.URL.Path, body)

	if d := c.checkAPIKey(r); d != nil {
		c.writeDenial(ctx, w, state, d)
		return
	}
	if d := c.checkBlocklist(r); d != nil {
		c.writeDenial(ctx, w, state, d)
		return
	}

	rule, _, err := c.Routes.Match(r.Method, r.URL.Path)
	if err != nil {
		c.writeDenial(ctx, w, state, deny(errors.ReasonRouteNotFound, "no route matches this method/path"))
		return
	}
	state.rule = rule
	state.toolID = rule.ToolID

	if d := c.checkReplay(r, state); d != nil {
		c.writeDenial(ctx, w, state, d)
		return
	}

	price, err := money.FromMajor(money.MustGetAsset("USDC"), rule.Price)
	if err != nil {
		c.writeDenial(ctx, w, state, deny(errors.ReasonInternalError, "route has an unparseable price"))
		return
	}
	state.price = price

	if d := c.checkMandate(r, state); d != nil {
		c.writeDenial(ctx, w, state, d)
		return
	}

	requirement, ok := c.Coordinator.Requirement(rule.ToolID)
	if !ok {
		requirement = payment.BuildRequirement(rule, c.Network, "")
	}

	paymentHeader := r.Header.Get("X-Payment")
	if paymentHeader == "" {
		c.writeQuote(ctx, w, state, rule)
		return
	}
	paymentPayload, err := base64.StdEncoding.DecodeString(paymentHeader)
	if err != nil {
		c.writeDenial(ctx, w, state, deny(errors.ReasonInvalidPayment, "X-Payment header is not valid base64"))
		return
	}

	verifyResult, err := c.Coordinator.Verify(ctx, requirement, paymentPayload)
	if err != nil {
		log.Warn().Err(err).Str("tool_id", rule.ToolID).Msg("pipeline.payment_verify_failed")
		c.writeDenial(ctx, w, state, deny(errors.ReasonInvalidPayment, "payment verification failed"))
		return
	}
	state.payer = verifyResult.Payer

	// TOCTOU-safe claim: the mandate verifier only read the projected
	// total (spec.md §4.4); the atomic claim happens here, once, right
	// before the request is actually allowed to spend.
	if state.mandate != nil {
		cap, err := money.FromMajor(money.MustGetAsset("USDC"), state.mandate.MaxSpendUSDCPerDay)
		if err == nil && !c.Spend.CheckAndAdd(state.mandate.MandateID, price, cap) {
			c.writeDenial(ctx, w, state, deny(errors.ReasonMandateBudgetExceeded, "mandate budget exceeded at claim time"))
			return
		}
	}

	fwdResult := c.Forwarder.Forward(ctx, rule.Provider, r.Method, r.URL.Path, r.URL.RawQuery, r.Header, body)
	if fwdResult.TransportFailed {
		c.writeDenial(ctx, w, state, deny(errors.ReasonUpstreamErrorNoCharge, "upstream transport failure"))
		return
	}
	state.responseHash = fwdResult.ResponseHash

	settleResult, settleErr := rpcutil.WithRetry(ctx, func() (*payment.SettleResult, error) {
		return c.Coordinator.Settle(ctx, requirement, paymentPayload)
	})
	if settleErr != nil {
		// Soft failure per spec.md §4.8/§7: the upstream response is
		// still returned, the receipt records a null payment_tx_hash,
		// and the failure is logged for manual reconciliation.
		log.Error().Err(settleErr).Str("tool_id", rule.ToolID).Msg("pipeline.settlement_failed")
	} else if settleResult != nil {
		state.txHash = settleResult.TxHash
		state.facilitatorReceiptID = settleResult.Payer
	}

	rec := c.buildReceipt(state, errors.ReasonOK, receipt.OutcomeSuccess, "")
	c.emit(ctx, rec)
	writeReceiptHeader(w, rec)
	w.Header().Set("Content-Type", contentTypeOrDefault(fwdResult.Headers))
	w.WriteHeader(fwdResult.StatusCode)
	w.Write(fwdResult.Body)
}

// emit records a terminal receipt: appends it to the receipt store,
// fans it out to the optional notifier, and updates Prometheus
// counters/histograms. Every exit from ServeHTTP funnels through here
// so spec.md §8's "exactly one receipt per terminated request"
// invariant has exactly one write path.
func (c *Controller) emit(ctx context.Context, rec receipt.Receipt) {
	if c.Receipts != nil {
		c.Receipts.Record(rec)
	}
	if c.Notifier != nil {
		c.Notifier.Notify(ctx, rec)
	}
	c.Metrics.ObserveRequest(rec.ToolID, string(rec.Outcome))
	if rec.ReasonCode != errors.ReasonOK {
		c.Metrics.ObserveDenial(rec.ToolID, string(rec.ReasonCode))
	}
	if rec.Outcome == receipt.OutcomeSuccess && rec.PaymentTxHash == "" {
		c.Metrics.ObserveSettlementFailure(rec.ToolID)
	}
	c.Metrics.ObservePipelineDuration(rec.ToolID, rec.LatencyMS)
}

func (c *Controller) checkAPIKey(r *http.Request) *denial {
	if c.APIKeys == nil || c.APIKeys.Allow(r) {
		return nil
	}
	return deny(errors.ReasonUnauthorized, "missing or invalid API key")
}

func (c *Controller) checkBlocklist(r *http.Request) *denial {
	agent := r.Header.Get("X-Agent-Address")
	if c.Blocklist != nil && c.Blocklist.IsBlocked(agent) {
		return deny(errors.ReasonAgentBlocked, "agent address is blocklisted")
	}
	return nil
}

func (c *Controller) checkReplay(r *http.Request, state *requestState) *denial {
	fp := replay.Fingerprint{
		IdempotencyKey: r.Header.Get("X-Request-Idempotency-Key"),
		RequestHash:    state.requestHash,
	}
	if !c.Replay.CheckAndStore(fp) {
		return deny(errors.ReasonReplayDetected, "request already admitted within the replay window")
	}
	return nil
}

func (c *Controller) checkMandate(r *http.Request, state *requestState) *denial {
	header := r.Header.Get("X-Mandate")
	var m *mandate.Mandate
	if header != "" {
		decoded, err := mandate.Decode(header)
		if err != nil {
			return deny(errors.ReasonInvalidSignature, "malformed X-Mandate header")
		}
		m = decoded
		state.mandateHash = hashHeader(header)
	}
	state.mandate = m

	confirmed := r.Header.Get(mandate.ConfirmHeader) == "true"
	verdict, reason := c.Verifier.Verify(m, state.toolID, state.price, confirmed)
	state.verdict = verdict
	if verdict == mandate.VerdictDenied {
		return deny(reason, "mandate verification denied the request")
	}
	return nil
}

func hashHeader(header string) string {
	sum := sha256.Sum256([]byte(header))
	return hex.EncodeToString(sum[:])
}

// writeQuote issues a 402 quote for a request carrying no X-Payment
// header at all. Per spec.md §9's open question, this gateway picks
// the receipt-emitting reading: a quote is still a terminated request,
// so it gets the same single denial receipt (reason INVALID_PAYMENT,
// outcome DENIED) every other short-circuit gets, preserving the
// "exactly one receipt per terminated request" invariant (spec.md §8-1)
// across the quote path too.
func (c *Controller) writeQuote(ctx context.Context, w http.ResponseWriter, state *requestState, rule routes.Rule) {
	quote := c.Coordinator.Quote(rule)

	rec := c.buildReceipt(state, errors.ReasonInvalidPayment, receipt.OutcomeDenied, "no X-Payment header; quote issued")
	c.emit(ctx, rec)
	writeReceiptHeader(w, rec)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(quote)
}

func (c *Controller) writeDenial(ctx context.Context, w http.ResponseWriter, state *requestState, d *denial) {
	outcome := receipt.OutcomeDenied
	if d.reason == errors.ReasonInternalError || d.reason == errors.ReasonUpstreamErrorNoCharge {
		outcome = receipt.OutcomeError
	}
	rec := c.buildReceipt(state, d.reason, outcome, d.explanation)
	c.emit(ctx, rec)
	writeReceiptHeader(w, rec)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(d.status)
	_ = json.NewEncoder(w).Encode(map[string]string{"reason_code": string(d.reason), "message": d.explanation})
}

func (c *Controller) buildReceipt(state *requestState, reason errors.ReasonCode, outcome receipt.Outcome, explanation string) receipt.Receipt {
	verdict := receipt.MandateSkipped
	switch state.verdict {
	case mandate.VerdictApproved:
		verdict = receipt.MandateApproved
	case mandate.VerdictDenied:
		verdict = receipt.MandateDenied
	}

	mandateID := ""
	if state.mandate != nil {
		mandateID = state.mandate.MandateID
	}

	return receipt.Receipt{
		RequestID:            state.requestID,
		ToolID:               state.toolID,
		ProviderID:           state.rule.Provider.ID,
		Endpoint:             state.rule.Path,
		Method:               state.rule.Method,
		Timestamp:            time.Now().UTC(),
		PriceUSDC:            state.price,
		Chain:                c.Network,
		MandateID:            mandateID,
		MandateHash:          state.mandateHash,
		MandateVerdict:       verdict,
		ReasonCode:           reason,
		PaymentTxHash:        state.txHash,
		FacilitatorReceiptID: state.facilitatorReceiptID,
		RequestHash:          state.requestHash,
		ResponseHash:         state.responseHash,
		LatencyMS:            time.Since(state.start).Milliseconds(),
		Outcome:              outcome,
		Explanation:          explanation,
	}
}

func writeReceiptHeader(w http.ResponseWriter, rec receipt.Receipt) {
	buf, err := json.Marshal(rec)
	if err != nil {
		return
	}
	w.Header().Set("X-Receipt", base64.StdEncoding.EncodeToString(buf))
}

func contentTypeOrDefault(h http.Header) string {
	if ct := h.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/json"
}
