// Package config loads the gateway's runtime configuration from
// environment variables, keeping the teacher's env-override idiom
// (string/bool/int setters, a Duration wrapper accepting both Go
// duration strings and bare milliseconds) but dropping the YAML file
// layer and Stripe/Solana/Postgres/MongoDB sections entirely: the
// gateway has no per-deployment config file, only the env vars
// spec.md §6.5 and its ambient-stack expansion name.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting the gateway needs to
// boot.
type Config struct {
	// Core (spec.md §6.5)
	PayToAddress   string
	Port           int
	FacilitatorURL string
	BaseNetwork    string // human name, e.g. "base-sepolia"
	AdminKey       string
	RoutesFile     string
	ConfigDocFile  string
	ReplayTTL      Duration

	// Ambient stack (SPEC_FULL.md §6.5)
	LogLevel                string
	LogFormat               string // "json" | "console"
	MetricsEnabled          bool
	ReceiptWebhookURL       string
	RateLimitPerMinute      int
	FacilitatorBearerSecret string
	X402ProbeTimeout        Duration
}

// Duration wraps time.Duration so env vars can be parsed either as Go
// duration strings ("5m") or bare milliseconds ("300000").
type Duration struct {
	time.Duration
}

func parseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseDuration(raw); err == nil {
		return Duration{Duration: d}, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Duration{}, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	return Duration{Duration: time.Duration(ms) * time.Millisecond}, nil
}

// caip2ByName maps the human network names an operator types into
// BASE_NETWORK onto their CAIP-2 identifier. Unknown names pass
// through unchanged so a newly supported chain doesn't require a code
// change to merely route requests.
var caip2ByName = map[string]string{
	"base":         "eip155:8453",
	"base-sepolia": "eip155:84532",
	"ethereum":     "eip155:1",
	"sepolia":      "eip155:11155111",
	"polygon":      "eip155:137",
}

// CAIP2 returns the CAIP-2 chain identifier for BaseNetwork.
func (c *Config) CAIP2() string {
	if id, ok := caip2ByName[c.BaseNetwork]; ok {
		return id
	}
	return c.BaseNetwork
}

// Load reads the gateway configuration from the process environment,
// applying defaults for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load() // no-op if .env absent; production uses real env vars

	cfg := &Config{
		Port:               4402,
		BaseNetwork:        "base-sepolia",
		ReplayTTL:          Duration{Duration: 300 * time.Second},
		LogLevel:           "info",
		LogFormat:          "json",
		MetricsEnabled:     true,
		RateLimitPerMinute: 120,
		X402ProbeTimeout:   Duration{Duration: 3 * time.Second},
	}

	cfg.PayToAddress = os.Getenv("PAY_TO_ADDRESS")
	setIfEnv(&cfg.FacilitatorURL, "FACILITATOR_URL")
	setIfEnv(&cfg.BaseNetwork, "BASE_NETWORK")
	setIfEnv(&cfg.AdminKey, "ADMIN_KEY")
	setIfEnv(&cfg.RoutesFile, "ROUTES_FILE")
	setIfEnv(&cfg.ConfigDocFile, "CONFIG_DOC_FILE")
	setIfEnv(&cfg.LogLevel, "LOG_LEVEL")
	setIfEnv(&cfg.LogFormat, "LOG_FORMAT")
	setIfEnv(&cfg.ReceiptWebhookURL, "RECEIPT_WEBHOOK_URL")
	setIfEnv(&cfg.FacilitatorBearerSecret, "FACILITATOR_BEARER_SECRET")

	if err := setIntIfEnv(&cfg.Port, "PORT"); err != nil {
		return nil, err
	}
	if err := setIntIfEnv(&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE"); err != nil {
		return nil, err
	}
	setBoolIfEnv(&cfg.MetricsEnabled, "METRICS_ENABLED")

	if err := setDurationIfEnv(&cfg.ReplayTTL, "REPLAY_TTL_MS"); err != nil {
		return nil, err
	}
	if err := setDurationIfEnv(&cfg.X402ProbeTimeout, "X402_PROBE_TIMEOUT_MS"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PayToAddress == "" {
		return fmt.Errorf("PAY_TO_ADDRESS is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

func setIfEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func setBoolIfEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v == "1" || strings.EqualFold(v, "true")
	}
}

func setIntIfEnv(target *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	*target = n
	return nil
}

// setDurationIfEnv parses a bare-millisecond or Go-duration-string env
// var, e.g. REPLAY_TTL_MS=300000 or REPLAY_TTL_MS=5m.
func setDurationIfEnv(target *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := parseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	*target = d
	return nil
}
