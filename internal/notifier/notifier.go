// Package notifier delivers receipt events to an operator-configured
// webhook URL, with bounded exponential-backoff retry and a dead
// letter queue for deliveries that exhaust their attempts. Adapted
// from internal/callbacks, simplified from its storage-backed
// persistent queue (Postgres/Mongo-durable, multi-tenant) to an
// in-process channel queue: spec.md's notifier is a single optional
// `RECEIPT_WEBHOOK_URL`, not a durable multi-customer delivery system.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/x402gateway/gateway/internal/receipt"
)

// Notifier is notified of every terminated request's receipt.
type Notifier interface {
	Notify(ctx context.Context, r receipt.Receipt)
}

// NoopNotifier discards every receipt; used when RECEIPT_WEBHOOK_URL
// is unset.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, receipt.Receipt) {}

// RetryConfig controls the webhook worker's exponential backoff.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Timeout         time.Duration
}

// DefaultRetryConfig mirrors internal/callbacks.DefaultRetryConfig's
// values.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: time.Second,
		MaxInterval:     5 * time.Minute,
		Multiplier:      2.0,
		Timeout:         10 * time.Second,
	}
}

// job is one queued delivery attempt.
type job struct {
	payload  []byte
	attempts int
}

// WebhookNotifier posts each receipt as JSON to a configured URL,
// retrying with exponential backoff and moving exhausted deliveries to
// a DLQ.
type WebhookNotifier struct {
	url        string
	client     *http.Client
	retryCfg   RetryConfig
	dlq        DLQStore
	log        zerolog.Logger
	queue      chan job
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewWebhookNotifier starts a background delivery worker posting to
// url. queueSize bounds how many receipts can be pending delivery
// before Notify starts dropping (logged, not blocking the request
// path).
func NewWebhookNotifier(url string, retryCfg RetryConfig, dlq DLQStore, log zerolog.Logger, queueSize int) *WebhookNotifier {
	if queueSize <= 0 {
		queueSize = 256
	}
	if dlq == nil {
		dlq = NewMemoryDLQStore()
	}
	n := &WebhookNotifier{
		url:      url,
		client:   &http.Client{Timeout: retryCfg.Timeout},
		retryCfg: retryCfg,
		dlq:      dlq,
		log:      log,
		queue:    make(chan job, queueSize),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go n.run()
	return n
}

// Notify enqueues the receipt for delivery. Never blocks the caller:
// a full queue drops the event and logs a warning.
func (n *WebhookNotifier) Notify(ctx context.Context, r receipt.Receipt) {
	payload, err := json.Marshal(r)
	if err != nil {
		n.log.Error().Err(err).Msg("notifier.marshal_failed")
		return
	}
	select {
	case n.queue <- job{payload: payload}:
	default:
		n.log.Warn().Str("request_id", r.RequestID).Msg("notifier.queue_full_dropped")
	}
}

// Stop waits for the delivery in progress, if any, to finish and stops
// the worker goroutine. Receipts still in the queue are not delivered.
func (n *WebhookNotifier) Stop() {
	close(n.stopChan)
	<-n.doneChan
}

func (n *WebhookNotifier) run() {
	defer close(n.doneChan)
	for {
		select {
		case <-n.stopChan:
			return
		case j := <-n.queue:
			n.deliver(j)
		}
	}
}

func (n *WebhookNotifier) deliver(j job) {
	j.attempts++
	ctx, cancel := context.WithTimeout(context.Background(), n.retryCfg.Timeout)
	err := n.send(ctx, j.payload)
	cancel()

	if err == nil {
		return
	}
	if j.attempts >= n.retryCfg.MaxAttempts {
		n.log.Warn().Err(err).Int("attempts", j.attempts).Msg("notifier.delivery_exhausted_to_dlq")
		_ = n.dlq.Save(context.Background(), FailedDelivery{
			Payload:     j.payload,
			Attempts:    j.attempts,
			LastError:   err.Error(),
			LastAttempt: time.Now().UTC(),
		})
		return
	}

	backoff := n.backoff(j.attempts)
	n.log.Warn().Err(err).Int("attempts", j.attempts).Dur("retry_in", backoff).Msg("notifier.delivery_retry_scheduled")
	time.AfterFunc(backoff, func() {
		select {
		case n.queue <- j:
		default:
			n.log.Warn().Msg("notifier.retry_queue_full_dropped")
		}
	})
}

func (n *WebhookNotifier) backoff(attempt int) time.Duration {
	d := n.retryCfg.InitialInterval
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * n.retryCfg.Multiplier)
		if d > n.retryCfg.MaxInterval {
			return n.retryCfg.MaxInterval
		}
	}
	return d
}

func (n *WebhookNotifier) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("received status %d from %s", resp.StatusCode, n.url)
	}
	return nil
}
