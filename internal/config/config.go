// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Backend choices for pluggable stores.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// BOX NOW
	BoxNowBaseURL      string        `envconfig:"BOXNOW_BASE_URL" default:"https://api-stage.boxnow.gr"`
	BoxNowClientID     string        `envconfig:"BOXNOW_CLIENT_ID"`
	BoxNowClientSecret string        `envconfig:"BOXNOW_CLIENT_SECRET"`
	BoxNowCancelPath   string        `envconfig:"BOXNOW_CANCEL_PATH"`
	BoxNowLabelPath    string        `envconfig:"BOXNOW_LABEL_PATH"`
	BoxNowTimeout      time.Duration `envconfig:"BOXNOW_TIMEOUT" default:"30s"`
	BoxNowTokenTTL     time.Duration `envconfig:"BOXNOW_TOKEN_TTL" default:"50m"`
	BoxNowUseMock      bool          `envconfig:"BOXNOW_USE_MOCK" default:"false"`

	// Merchant
	Warehouses     []string `envconfig:"BOXNOW_WAREHOUSES"`
	OriginPhone    string   `envconfig:"BOXNOW_ORIGIN_PHONE"`
	OriginEmail    string   `envconfig:"BOXNOW_ORIGIN_EMAIL"`
	VoucherMode    string   `envconfig:"BOXNOW_VOUCHER_MODE" default:"button"`
	VoucherEmail   string   `envconfig:"BOXNOW_VOUCHER_EMAIL"`
	AllowReturns   bool     `envconfig:"BOXNOW_ALLOW_RETURNS" default:"false"`
	CODMethod      string   `envconfig:"BOXNOW_COD_METHOD" default:"cod"`
	ShippingMethod string   `envconfig:"BOXNOW_SHIPPING_METHOD" default:"box_now_delivery"`
	CanceledStatus string   `envconfig:"BOXNOW_CANCELED_STATUS" default:"boxnow-canceled"`

	// Storage
	TokenCache   string        `envconfig:"TOKEN_CACHE" default:"none"`
	OrderStore   string        `envconfig:"ORDER_STORE" default:"memory"`
	SQLitePath   string        `envconfig:"SQLITE_PATH" default:"lockerlink.db"`
	SessionStore string        `envconfig:"SESSION_STORE" default:"memory"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"2h"`
	RedisAddr    string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB      int           `envconfig:"REDIS_DB" default:"0"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"lockerlink"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown backend and mode names.
func (c *Config) Validate() error {
	checks := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"BOXNOW_VOUCHER_MODE", c.VoucherMode, []string{"email", "button"}},
		{"TOKEN_CACHE", c.TokenCache, []string{BackendNone, BackendMemory, BackendRedis}},
		{"ORDER_STORE", c.OrderStore, []string{BackendMemory, BackendSQLite}},
		{"SESSION_STORE", c.SessionStore, []string{BackendMemory, BackendRedis}},
	}
	for _, ch := range checks {
		if !contains(ch.allowed, ch.value) {
			return fmt.Errorf("invalid %s %q: want one of %s", ch.name, ch.value, strings.Join(ch.allowed, ", "))
		}
	}
	if c.OrderStore == BackendSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite order store")
	}
	return nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("boxnow.voucher_mode", c.VoucherMode),
		attribute.Bool("boxnow.mock", c.BoxNowUseMock),
		attribute.String("lockerlink.order_store", c.OrderStore),
		attribute.String("lockerlink.session_store", c.SessionStore),
		attribute.String("lockerlink.token_cache", c.TokenCache),
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
