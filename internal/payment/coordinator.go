package payment

import (
	"context"
	"sync"

	"github.com/x402gateway/gateway/internal/circuitbreaker"
	"github.com/x402gateway/gateway/internal/logger"
	"github.com/x402gateway/gateway/internal/routes"
)

// Coordinator implements the x402 payment state machine: Quoted ->
// Verifying -> Verified -> Settling, per spec.md §4.5. The CAIP-2
// network and pay-to address are fixed at construction; runtime
// config changes to the base network name do not retarget the
// facilitator.
type Coordinator struct {
	client  FacilitatorClient
	breaker *circuitbreaker.Manager
	network string
	payTo   string

	mu       sync.RWMutex
	accepts  map[string]Requirement // tool_id -> compiled requirement, kept in sync with the route table
}

// NewCoordinator builds a coordinator bound to one facilitator and one
// settlement network/address pair.
func NewCoordinator(client FacilitatorClient, breaker *circuitbreaker.Manager, network, payTo string) *Coordinator {
	return &Coordinator{
		client:  client,
		breaker: breaker,
		network: network,
		payTo:   payTo,
		accepts: make(map[string]Requirement),
	}
}

// Subscribe registers the coordinator as an observer of the route
// table so its compiled requirement cache never twin-writes against
// the table: every table mutation fans out here synchronously, per
// spec.md §9's "observer, not twin-writer" design note.
func (c *Coordinator) Subscribe(table *routes.Table) {
	table.Subscribe(c.onRoutesReplaced)
	c.onRoutesReplaced(table.Snapshot())
}

func (c *Coordinator) onRoutesReplaced(rules []routes.Rule) {
	accepts := make(map[string]Requirement, len(rules))
	for _, rule := range rules {
		accepts[rule.ToolID] = BuildRequirement(rule, c.network, c.payTo)
	}

	c.mu.Lock()
	c.accepts = accepts
	c.mu.Unlock()
}

// Requirement returns the compiled payment requirement for a route,
// from the observer-maintained cache rather than recomputing it.
func (c *Coordinator) Requirement(toolID string) (Requirement, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	req, ok := c.accepts[toolID]
	return req, ok
}

// Quote builds the 402 body for a route with no payment header yet.
func (c *Coordinator) Quote(rule routes.Rule) Quote {
	return BuildQuote(rule, c.network, c.payTo)
}

// Verify calls the facilitator's verify endpoint through the
// facilitator circuit breaker. A verify failure (network error,
// breaker open, facilitator-rejected payment) is always the caller's
// signal to respond 402 with reason_code=INVALID_PAYMENT; this
// function does not distinguish the two causes because spec.md does
// not either.
func (c *Coordinator) Verify(ctx context.Context, requirement Requirement, paymentPayload []byte) (*VerifyResult, error) {
	result, err := c.breaker.Execute(circuitbreaker.ServiceFacilitator, func() (interface{}, error) {
		return c.client.Verify(ctx, paymentPayload, requirement)
	})
	if err != nil {
		return nil, err
	}
	return result.(*VerifyResult), nil
}

// Settle calls the facilitator's settle endpoint after a successful
// upstream proxy call. Per spec.md §4.5, a settle failure is not
// escalated to the caller as a hard error: it is logged and the
// receipt is emitted with a null tx hash (internal/pipeline wraps this
// call in rpcutil.WithRetry, a bounded synchronous retry).
func (c *Coordinator) Settle(ctx context.Context, requirement Requirement, paymentPayload []byte) (*SettleResult, error) {
	result, err := c.breaker.Execute(circuitbreaker.ServiceFacilitator, func() (interface{}, error) {
		return c.client.Settle(ctx, paymentPayload, requirement)
	})
	if err != nil {
		logger.FromContext(ctx).Warn().
			Err(err).
			Str("pay_to", logger.TruncateAddress(requirement.PayTo)).
			Msg("payment.settle_failed")
		return nil, err
	}
	return result.(*SettleResult), nil
}
