package config

import (
	"time"

	"github.com/pitabwire/frame/config"

	"github.com/voicetyped/flightbot/internal/store"
	"github.com/voicetyped/flightbot/pkg/webhook"
)

// TelemetryConfig names the sink that receives booking outcome records.
type TelemetryConfig struct {
	// AppInsightsKey is the instrumentation key or full connection string.
	AppInsightsKey string `envDefault:"" env:"APPINSIGHTS_INSTRUMENTATION_KEY"`
	MicrosoftAppID string `envDefault:"" env:"MicrosoftAppId"`
}

// CatalogConfig locates the prompt catalog.
type CatalogConfig struct {
	PromptCatalog      string `envDefault:""     env:"PROMPT_CATALOG"`
	PromptCatalogWatch bool   `envDefault:"true" env:"PROMPT_CATALOG_WATCH"`
}

// TemporalConfig addresses the Temporal frontend.
type TemporalConfig struct {
	TemporalHostPort    string        `envDefault:""                  env:"TEMPORAL_HOST_PORT"`
	TemporalNamespace   string        `envDefault:"default"           env:"TEMPORAL_NAMESPACE"`
	TemporalTaskQueue   string        `envDefault:"flightbot-booking" env:"TEMPORAL_TASK_QUEUE"`
	TemporalIdleTimeout time.Duration `envDefault:"30m"               env:"TEMPORAL_IDLE_TIMEOUT"`
}

// TemporalEnabled reports whether a Temporal frontend is configured.
func (c TemporalConfig) TemporalEnabled() bool {
	return c.TemporalHostPort != ""
}

// WebhookConfig configures outcome notifications.
type WebhookConfig struct {
	WebhookURLs           string        `envDefault:""                  env:"WEBHOOK_URLS"`
	WebhookSecret         string        `envDefault:""                  env:"WEBHOOK_SECRET"`
	WebhookEvents         string        `envDefault:"booking.confirmed" env:"WEBHOOK_EVENTS"`
	WebhookMaxRetries     int           `envDefault:"5"                 env:"WEBHOOK_MAX_RETRIES"`
	WebhookTimeout        time.Duration `envDefault:"10s"               env:"WEBHOOK_TIMEOUT"`
	WebhookBackoffInitial time.Duration `envDefault:"1s"                env:"WEBHOOK_BACKOFF_INITIAL"`
	WebhookBackoffMax     time.Duration `envDefault:"5m"                env:"WEBHOOK_BACKOFF_MAX"`
	CBFailThreshold       uint32        `envDefault:"5"                 env:"CB_FAILURE_THRESHOLD"`
	CBResetTimeout        time.Duration `envDefault:"60s"               env:"CB_RESET_TIMEOUT"`
}

// WebhookEndpoints parses the configured notification targets.
func (c WebhookConfig) WebhookEndpoints() ([]webhook.Endpoint, error) {
	return webhook.ParseEndpoints(c.WebhookURLs, c.WebhookSecret, webhook.ParseEventTypes(c.WebhookEvents))
}

// DelivererConfig maps the delivery knobs onto webhook.Config.
func (c WebhookConfig) DelivererConfig() webhook.Config {
	return webhook.Config{
		MaxAttempts:      c.WebhookMaxRetries,
		Timeout:          c.WebhookTimeout,
		BackoffInitial:   c.WebhookBackoffInitial,
		BackoffMax:       c.WebhookBackoffMax,
		FailureThreshold: c.CBFailThreshold,
		ResetTimeout:     c.CBResetTimeout,
	}
}

// ServiceConfig holds configuration for the booking service.
type ServiceConfig struct {
	config.ConfigurationDefault
	TelemetryConfig
	CatalogConfig
	TemporalConfig
	WebhookConfig

	SessionStore  string        `envDefault:"memory" env:"SESSION_STORE"`
	RedisAddr     string        `envDefault:""       env:"REDIS_ADDR"`
	RedisPassword string        `envDefault:""       env:"REDIS_PASSWORD"`
	RedisDB       int           `envDefault:"0"      env:"REDIS_DB"`
	SessionTTL    time.Duration `envDefault:"30m"    env:"SESSION_TTL"`
}

// StoreOptions maps the session settings onto store.Options.
func (c *ServiceConfig) StoreOptions() store.Options {
	return store.Options{
		Kind:          c.SessionStore,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		TTL:           c.SessionTTL,
	}
}

// WorkerConfig holds configuration for the Temporal worker.
type WorkerConfig struct {
	config.ConfigurationDefault
	TelemetryConfig
	TemporalConfig
}
