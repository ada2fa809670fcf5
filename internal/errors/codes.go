package errors

// ReasonCode is the closed enum of pipeline denial/outcome reasons. Every
// stage short-circuit and every successful admission maps to exactly one.
type ReasonCode string

const (
	ReasonOK ReasonCode = "OK"

	// Admission
	ReasonUnauthorized ReasonCode = "UNAUTHORIZED"
	ReasonAgentBlocked ReasonCode = "AGENT_BLOCKED"
	ReasonRateLimited  ReasonCode = "RATE_LIMITED"

	// Routing
	ReasonRouteNotFound     ReasonCode = "ROUTE_NOT_FOUND"
	ReasonSSRFBlocked       ReasonCode = "SSRF_BLOCKED"
	ReasonX402UpstreamBlock ReasonCode = "X402_UPSTREAM_BLOCKED"

	// Idempotency
	ReasonReplayDetected ReasonCode = "REPLAY_DETECTED"

	// Mandate
	ReasonMandateExpired           ReasonCode = "MANDATE_EXPIRED"
	ReasonEndpointNotAllowlisted   ReasonCode = "ENDPOINT_NOT_ALLOWLISTED"
	ReasonMandateBudgetExceeded    ReasonCode = "MANDATE_BUDGET_EXCEEDED"
	ReasonMandateConfirmRequired   ReasonCode = "MANDATE_CONFIRM_REQUIRED"
	ReasonInvalidSignature         ReasonCode = "INVALID_SIGNATURE"

	// Payment
	ReasonInvalidPayment ReasonCode = "INVALID_PAYMENT"

	// Upstream
	ReasonUpstreamErrorNoCharge ReasonCode = "UPSTREAM_ERROR_NO_CHARGE"

	// Fallback
	ReasonInternalError ReasonCode = "INTERNAL_ERROR"
)

// IsRetryable reports whether a client should be expected to retry the same
// request unmodified. Validation/authorization denials are not retryable;
// the transient upstream class is.
func (r ReasonCode) IsRetryable() bool {
	switch r {
	case ReasonUpstreamErrorNoCharge, ReasonInternalError:
		return true
	default:
		return false
	}
}

// HTTPStatus returns the HTTP status code a denial with this reason must be
// reported with. Mirrors the pipeline stage table.
func (r ReasonCode) HTTPStatus() int {
	switch r {
	case ReasonOK:
		return 200
	case ReasonUnauthorized:
		return 401
	case ReasonAgentBlocked:
		return 403
	case ReasonRateLimited:
		return 429
	case ReasonRouteNotFound:
		return 404
	case ReasonSSRFBlocked, ReasonX402UpstreamBlock:
		return 400
	case ReasonReplayDetected:
		return 409
	case ReasonMandateExpired,
		ReasonEndpointNotAllowlisted,
		ReasonMandateBudgetExceeded,
		ReasonMandateConfirmRequired,
		ReasonInvalidSignature:
		return 403
	case ReasonInvalidPayment:
		return 402
	case ReasonUpstreamErrorNoCharge:
		return 502
	default:
		return 500
	}
}
