// Command gateway boots the x402 payment gateway: loads configuration
// from the environment, wires every collaborator package together,
// and serves until SIGINT/SIGTERM. Grounded on pkg/cedros.App's
// construction order (store/verifier/services built bottom-up, then
// handed to httpserver.New) and internal/lifecycle.Manager's LIFO
// resource cleanup, flattened into a single main() since the gateway
// has no embeddable-library use case the teacher's App wrapper served.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/x402gateway/gateway/internal/admission"
	"github.com/x402gateway/gateway/internal/circuitbreaker"
	"github.com/x402gateway/gateway/internal/config"
	"github.com/x402gateway/gateway/internal/httphandlers"
	"github.com/x402gateway/gateway/internal/httpserver"
	"github.com/x402gateway/gateway/internal/lifecycle"
	"github.com/x402gateway/gateway/internal/logger"
	"github.com/x402gateway/gateway/internal/mandate"
	"github.com/x402gateway/gateway/internal/metrics"
	"github.com/x402gateway/gateway/internal/notifier"
	"github.com/x402gateway/gateway/internal/payment"
	"github.com/x402gateway/gateway/internal/pipeline"
	"github.com/x402gateway/gateway/internal/proxy"
	"github.com/x402gateway/gateway/internal/ratelimit"
	"github.com/x402gateway/gateway/internal/receipt"
	"github.com/x402gateway/gateway/internal/replay"
	"github.com/x402gateway/gateway/internal/routes"
	"github.com/x402gateway/gateway/internal/spend"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code, per spec.md §6.6: non-zero on
// startup misconfiguration, zero on graceful shutdown.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway: configuration error: %v\n", err)
		return 1
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Service:     "x402-gateway",
		Version:     "1.0.0",
		Environment: envOrDefault("ENVIRONMENT", "production"),
	})
	log.Logger = appLogger

	resources := lifecycle.NewManager()
	defer resources.Close()

	table, err := routes.LoadTable(cfg.RoutesFile)
	if err != nil {
		appLogger.Error().Err(err).Msg("gateway.routes_load_failed")
		return 1
	}

	configDoc, err := config.LoadDoc(cfg.ConfigDocFile, config.Doc{
		PayToAddress: cfg.PayToAddress,
		Network:      cfg.BaseNetwork,
	})
	if err != nil {
		appLogger.Error().Err(err).Msg("gateway.config_doc_load_failed")
		return 1
	}

	metricsRegistry := metrics.New(nil)

	replayStore := replay.New(cfg.ReplayTTL.Duration)
	resources.RegisterFunc("replay_store", func() error { replayStore.Close(); return nil })

	spendTracker := spend.New()
	verifier := mandate.NewVerifier(spendTracker)

	breaker := circuitbreaker.NewManager(circuitbreaker.DefaultConfig(), appLogger)

	var minter payment.TokenMinter
	if cfg.FacilitatorBearerSecret != "" {
		minter = payment.NewJWTMinter([]byte(cfg.FacilitatorBearerSecret), 30*time.Second)
	}
	facilitator := payment.NewRemoteFacilitator(cfg.FacilitatorURL, minter)
	coordinator := payment.NewCoordinator(facilitator, breaker, cfg.CAIP2(), configDoc.PayToAddress)
	coordinator.Subscribe(table)

	forwarder := proxy.NewForwarder(30 * time.Second)
	receiptStore := receipt.NewStore(0)

	var receiptNotifier notifier.Notifier = notifier.NoopNotifier{}
	if cfg.ReceiptWebhookURL != "" {
		webhookNotifier := notifier.NewWebhookNotifier(cfg.ReceiptWebhookURL, notifier.DefaultRetryConfig(), nil, appLogger, 256)
		resources.RegisterFunc("webhook_notifier", func() error { webhookNotifier.Stop(); return nil })
		receiptNotifier = webhookNotifier
	}

	blocklist := admission.NewBlocklist(configDoc.AgentBlocklist)
	apiKeys := admission.NewAPIKeyChecker(configDoc.APIKey)
	adminKeyChecker := admission.NewAPIKeyChecker(cfg.AdminKey)

	controller := &pipeline.Controller{
		Routes:      table,
		Replay:      replayStore,
		Verifier:    verifier,
		Spend:       spendTracker,
		Coordinator: coordinator,
		Forwarder:   forwarder,
		Receipts:    receiptStore,
		Blocklist:   blocklist,
		APIKeys:     apiKeys,
		Network:     cfg.CAIP2(),
		Metrics:     metricsRegistry,
		Notifier:    receiptNotifier,
	}

	probeClient := &http.Client{Timeout: cfg.X402ProbeTimeout.Duration}
	admin := httphandlers.Deps{
		Routes:    httphandlers.NewRoutesHandler(table, cfg.RoutesFile, probeClient, cfg.X402ProbeTimeout.Duration),
		Receipts:  httphandlers.NewReceiptsHandler(receiptStore),
		Blocklist: httphandlers.NewBlocklistHandler(blocklist, cfg.ConfigDocFile, configDoc),
		Spend:     httphandlers.NewSpendHandler(spendTracker),
		AdminKey:  adminKeyChecker,
	}

	rateLimitCfg := ratelimit.DefaultConfig(cfg.RateLimitPerMinute)
	rateLimitCfg.Metrics = metricsRegistry

	server := httpserver.New(httpserver.Config{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		MetricsEnabled: cfg.MetricsEnabled,
		RateLimit:      rateLimitCfg,
	}, table, controller, admin, appLogger)

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info().Int("port", cfg.Port).Msg("gateway.listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	select {
	case <-ctx.Done():
		appLogger.Info().Msg("gateway.shutdown_signal_received")
	case err := <-serverErr:
		appLogger.Error().Err(err).Msg("gateway.listen_failed")
		return 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("gateway.shutdown_failed")
		return 1
	}

	return 0
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
