// Package metrics exposes the gateway's Prometheus instrumentation,
// grounded on the teacher's internal/metrics package shape
// (promauto-registered CounterVec/HistogramVec/Gauge fields on one
// struct, plus ObserveX helper methods) but replacing its
// payment/cart/refund/DB vocabulary with the gateway's own: admission
// outcomes, pipeline latency, facilitator round-trips, and the
// replay/spend stores' live state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the gateway registers.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	AdmissionDenials   *prometheus.CounterVec
	PipelineDuration   *prometheus.HistogramVec
	FacilitatorCalls   *prometheus.CounterVec
	FacilitatorLatency *prometheus.HistogramVec
	SettlementFailures *prometheus.CounterVec
	ReplayStoreSize    prometheus.Gauge
	MandateSpendUSDC   *prometheus.GaugeVec
	RateLimitHitsTotal *prometheus.CounterVec
	WebhookDeliveries  *prometheus.CounterVec
	WebhookRetries     *prometheus.CounterVec
	WebhookDLQTotal    prometheus.Counter
	WebhookDuration    prometheus.Histogram
}

// New creates and registers every collector against registry. A nil
// registry registers against prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Total number of /api requests admitted through the pipeline.",
			},
			[]string{"tool_id", "outcome"},
		),
		AdmissionDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_admission_denials_total",
				Help: "Total number of requests denied, by reason code.",
			},
			[]string{"tool_id", "reason_code"},
		),
		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_pipeline_duration_seconds",
				Help:    "End-to-end pipeline latency from request admission to response write (supports p50/p95/p99).",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"tool_id"},
		),
		FacilitatorCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_facilitator_calls_total",
				Help: "Total number of facilitator calls, by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		FacilitatorLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_facilitator_latency_seconds",
				Help:    "Facilitator round-trip latency, by operation.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"operation"},
		),
		SettlementFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_settlement_failures_total",
				Help: "Total number of soft settlement failures (response already returned to the caller).",
			},
			[]string{"tool_id"},
		),
		ReplayStoreSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_replay_store_entries",
				Help: "Current number of fingerprints held in the replay store.",
			},
		),
		MandateSpendUSDC: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gateway_mandate_spend_usdc",
				Help: "Current spend-tracker total per mandate, in major USDC units.",
			},
			[]string{"mandate_id", "window"},
		),
		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_rate_limit_hits_total",
				Help: "Total number of requests rejected by the rate limiter.",
			},
			[]string{"agent_address"},
		),
		WebhookDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_webhook_deliveries_total",
				Help: "Total receipt webhook delivery attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		WebhookRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_webhook_retries_total",
				Help: "Total receipt webhook retry attempts, by attempt number.",
			},
			[]string{"attempt"},
		),
		WebhookDLQTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_webhook_dlq_total",
				Help: "Total receipt webhook deliveries moved to the dead letter queue.",
			},
		),
		WebhookDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gateway_webhook_duration_seconds",
				Help:    "Time taken for a single receipt webhook delivery attempt.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
	}
}

// MeasurePipeline wraps a pipeline run with timing instrumentation.
// Usage: defer metrics.MeasurePipeline(m, toolID)()
func MeasurePipeline(m *Metrics, toolID string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.PipelineDuration.WithLabelValues(toolID).Observe(time.Since(start).Seconds())
	}
}

// ObserveRequest records the terminal outcome of one pipeline run.
func (m *Metrics) ObserveRequest(toolID, outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(toolID, outcome).Inc()
}

// ObservePipelineDuration records one request's end-to-end latency,
// already measured by the caller (the pipeline controller tracks its
// own start time per request, so this takes milliseconds directly
// rather than timing a deferred closure like MeasurePipeline does).
func (m *Metrics) ObservePipelineDuration(toolID string, latencyMS int64) {
	if m == nil {
		return
	}
	m.PipelineDuration.WithLabelValues(toolID).Observe(float64(latencyMS) / 1000)
}

// ObserveDenial records an admission-pipeline denial by reason code.
func (m *Metrics) ObserveDenial(toolID, reasonCode string) {
	if m == nil {
		return
	}
	m.AdmissionDenials.WithLabelValues(toolID, reasonCode).Inc()
}

// ObserveFacilitatorCall records a facilitator round-trip's outcome
// and latency.
func (m *Metrics) ObserveFacilitatorCall(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.FacilitatorCalls.WithLabelValues(operation, outcome).Inc()
	m.FacilitatorLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveSettlementFailure records a soft settlement failure for a
// tool whose upstream response was already returned to the caller.
func (m *Metrics) ObserveSettlementFailure(toolID string) {
	if m == nil {
		return
	}
	m.SettlementFailures.WithLabelValues(toolID).Inc()
}

// ObserveWebhook records a receipt webhook delivery attempt.
func (m *Metrics) ObserveWebhook(outcome string, duration time.Duration, attempt int, sentToDLQ bool) {
	if m == nil {
		return
	}
	m.WebhookDeliveries.WithLabelValues(outcome).Inc()
	m.WebhookDuration.Observe(duration.Seconds())
	if attempt > 1 {
		m.WebhookRetries.WithLabelValues(formatAttempt(attempt)).Inc()
	}
	if sentToDLQ {
		m.WebhookDLQTotal.Inc()
	}
}

// ObserveRateLimitHit records a request rejected by the rate limiter.
func (m *Metrics) ObserveRateLimitHit(agentAddress string) {
	if m == nil {
		return
	}
	m.RateLimitHitsTotal.WithLabelValues(agentAddress).Inc()
}

func formatAttempt(attempt int) string {
	if attempt <= 9 {
		return string(rune('0' + attempt))
	}
	return "10+"
}
