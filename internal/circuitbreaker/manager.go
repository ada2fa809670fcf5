// Package circuitbreaker provides per-external-service circuit breakers so
// a failing dependency (the facilitator, a receipt webhook) degrades in
// isolation instead of cascading into the request-admission pipeline.
package circuitbreaker

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ServiceType identifies an external service for breaker isolation.
type ServiceType string

const (
	// ServiceFacilitator guards verify/settle calls to the x402 facilitator.
	ServiceFacilitator ServiceType = "facilitator"
	// ServiceWebhook has its own breaker configured for receipt webhook
	// deliveries; notifier.WebhookNotifier does not route its deliveries
	// through Execute, so they are not breaker-guarded.
	ServiceWebhook ServiceType = "webhook"
)

// Manager manages circuit breakers for different external services.
// Provides bulkhead isolation - each service has its own circuit breaker
// to prevent cascading failures across service boundaries.
type Manager struct {
	breakers map[ServiceType]*gobreaker.CircuitBreaker
	config   Config
	log      zerolog.Logger
}

// Config holds circuit breaker configuration for all services.
type Config struct {
	Enabled     bool
	Facilitator BreakerConfig
	Webhook     BreakerConfig
}

// BreakerConfig configures a single circuit breaker.
type BreakerConfig struct {
	// MaxRequests is the maximum number of requests allowed to pass through
	// when the circuit breaker is half-open. Default: 3 (facilitator), 5 (webhook)
	MaxRequests uint32

	// Interval is the cyclic period in closed state to clear the internal counts.
	// If 0, never clears. Default: 60s
	Interval time.Duration

	// Timeout is the period of the open state after which the state becomes half-open.
	// Default: 30s
	Timeout time.Duration

	// ReadyToTrip is called whenever a request fails in the closed state.
	// If it returns true, the circuit breaker trips to open state.
	// Default: 5 consecutive failures or 50% failure rate over 10 requests
	ConsecutiveFailures uint32
	FailureRatio        float64
	MinRequests         uint32
}

// NewManager creates a circuit breaker manager with the given configuration.
// log receives a state-transition event on every trip/recovery.
func NewManager(cfg Config, log zerolog.Logger) *Manager {
	m := &Manager{
		breakers: make(map[ServiceType]*gobreaker.CircuitBreaker),
		config:   cfg,
		log:      log,
	}

	if !cfg.Enabled {
		return m // pass-through
	}

	m.breakers[ServiceFacilitator] = gobreaker.NewCircuitBreaker(m.toGobreakerSettings(string(ServiceFacilitator), cfg.Facilitator))
	m.breakers[ServiceWebhook] = gobreaker.NewCircuitBreaker(m.toGobreakerSettings(string(ServiceWebhook), cfg.Webhook))

	return m
}

// Execute wraps a function call with circuit breaker protection.
// If circuit breaker is disabled or not configured for the service, executes directly.
func (m *Manager) Execute(service ServiceType, fn func() (interface{}, error)) (interface{}, error) {
	if !m.config.Enabled {
		return fn()
	}

	breaker, ok := m.breakers[service]
	if !ok {
		return fn()
	}

	return breaker.Execute(fn)
}

// State returns the current state of a circuit breaker.
// Returns "disabled" if circuit breakers are not enabled or service not found.
func (m *Manager) State(service ServiceType) string {
	if !m.config.Enabled {
		return "disabled"
	}

	breaker, ok := m.breakers[service]
	if !ok {
		return "not_configured"
	}

	return breaker.State().String()
}

// Counts returns the current counts for a circuit breaker.
func (m *Manager) Counts(service ServiceType) Counts {
	if !m.config.Enabled {
		return Counts{}
	}

	breaker, ok := m.breakers[service]
	if !ok {
		return Counts{}
	}

	c := breaker.Counts()
	return Counts{
		Requests:             c.Requests,
		TotalSuccesses:       c.TotalSuccesses,
		TotalFailures:        c.TotalFailures,
		ConsecutiveSuccesses: c.ConsecutiveSuccesses,
		ConsecutiveFailures:  c.ConsecutiveFailures,
	}
}

// Counts represents circuit breaker statistics.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (m *Manager) toGobreakerSettings(name string, cfg BreakerConfig) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
				if counts.Requests >= cfg.MinRequests {
					failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
					if failureRate >= cfg.FailureRatio {
						return true
					}
				}
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			m.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuitbreaker.state_change")
		},
	}
}

// DefaultConfig returns sensible defaults for circuit breaker configuration.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Facilitator: BreakerConfig{
			MaxRequests:         3,
			Interval:            60 * time.Second,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
			FailureRatio:        0.5,
			MinRequests:         10,
		},
		Webhook: BreakerConfig{
			MaxRequests:         5,
			Interval:            60 * time.Second,
			Timeout:             60 * time.Second, // longer timeout for webhook recovery
			ConsecutiveFailures: 10,               // more tolerant than the facilitator breaker
			FailureRatio:        0.7,
			MinRequests:         20,
		},
	}
}
