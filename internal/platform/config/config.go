package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Correlation modes control what travels through the provider's vendorData.
const (
	CorrelationModeHandle = "handle"
	CorrelationModeOpaque = "opaque"
)

// Correlation store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Server captures process level configuration. Provider and messaging
// credentials are optional at startup; the affected endpoint fails at
// request time when they are missing.
type Server struct {
	Addr            string        `env:"KYC_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"KYC_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Log         LogConfig
	Provider    ProviderConfig
	Messaging   MessagingConfig
	Webhook     WebhookConfig
	Correlation CorrelationConfig
	Notify      NotifyConfig
	Redis       RedisConfig
	Postgres    PostgresConfig
	Kafka       KafkaConfig
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// ProviderConfig holds the identity-verification provider settings.
type ProviderConfig struct {
	ClientKey    string        `env:"VERIFF_API_KEY"`
	SharedSecret string        `env:"VERIFF_SECRET_KEY"`
	SessionsURL  string        `env:"VERIFF_URL" envDefault:"https://stationapi.veriff.com/v1/sessions"`
	CallbackURL  string        `env:"VERIFF_CALLBACK_URL"`
	DocumentType string        `env:"VERIFF_DOCUMENT_TYPE" envDefault:"ID_CARD"`
	Timeout      time.Duration `env:"VERIFF_TIMEOUT" envDefault:"10s"`
}

// Configured reports whether both provider credentials are present.
func (p ProviderConfig) Configured() bool {
	return p.ClientKey != "" && p.SharedSecret != ""
}

// MessagingConfig holds the WhatsApp messaging API settings.
type MessagingConfig struct {
	APIKey  string        `env:"INFOBIP_API_KEY"`
	BaseURL string        `env:"INFOBIP_BASE_URL"`
	Sender  string        `env:"INFOBIP_SENDER"`
	Timeout time.Duration `env:"INFOBIP_TIMEOUT" envDefault:"10s"`
}

func (m MessagingConfig) Configured() bool {
	return m.APIKey != "" && m.BaseURL != "" && m.Sender != ""
}

// WebhookConfig controls authentication of inbound decision callbacks.
type WebhookConfig struct {
	// Secret defaults to the provider shared secret when empty.
	Secret           string `env:"WEBHOOK_SECRET"`
	RequireSignature bool   `env:"WEBHOOK_REQUIRE_SIGNATURE" envDefault:"true"`
	Dedupe           bool   `env:"DECISION_DEDUPE" envDefault:"true"`
}

type CorrelationConfig struct {
	Mode          string        `env:"CORRELATION_MODE" envDefault:"handle"`
	Store         string        `env:"CORRELATION_STORE" envDefault:"memory"`
	TTL           time.Duration `env:"CORRELATION_TTL" envDefault:"720h"`
	MaxEntries    int           `env:"CORRELATION_MAX_ENTRIES" envDefault:"100000"`
	SweepInterval time.Duration `env:"CORRELATION_SWEEP_INTERVAL" envDefault:"10m"`
}

type NotifyConfig struct {
	Workers          int           `env:"NOTIFY_WORKERS" envDefault:"4"`
	QueueSize        int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	MaxAttempts      int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
	InitialBackoff   time.Duration `env:"NOTIFY_INITIAL_BACKOFF" envDefault:"500ms"`
	MaxBackoff       time.Duration `env:"NOTIFY_MAX_BACKOFF" envDefault:"5s"`
	BreakerThreshold int           `env:"NOTIFY_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerCooldown  time.Duration `env:"NOTIFY_BREAKER_COOLDOWN" envDefault:"30s"`
}

// RedisConfig configures the optional Redis connection.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// PostgresConfig configures the optional Postgres connection.
type PostgresConfig struct {
	URL          string        `env:"DATABASE_URL"`
	MaxOpenConns int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// KafkaConfig enables the audit event publisher when brokers are set.
type KafkaConfig struct {
	Brokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"kycbridge.audit"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c *Server) normalize() {
	c.Correlation.Mode = strings.ToLower(strings.TrimSpace(c.Correlation.Mode))
	c.Correlation.Store = strings.ToLower(strings.TrimSpace(c.Correlation.Store))
	c.Messaging.BaseURL = strings.TrimRight(strings.TrimSpace(c.Messaging.BaseURL), "/")
	if c.Webhook.Secret == "" {
		c.Webhook.Secret = c.Provider.SharedSecret
	}
}

// Validate rejects settings that cannot work at all. Missing credentials are
// not validation failures.
func (c Server) Validate() error {
	switch c.Correlation.Mode {
	case CorrelationModeHandle, CorrelationModeOpaque:
	default:
		return fmt.Errorf("unknown correlation mode %q", c.Correlation.Mode)
	}
	switch c.Correlation.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("correlation store redis requires REDIS_URL")
		}
	case StorePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("correlation store postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown correlation store %q", c.Correlation.Store)
	}
	if c.Correlation.TTL <= 0 {
		return fmt.Errorf("correlation ttl must be positive")
	}
	if c.Provider.Timeout <= 0 || c.Messaging.Timeout <= 0 {
		return fmt.Errorf("outbound timeouts must be positive")
	}
	if c.Notify.Workers <= 0 || c.Notify.QueueSize <= 0 || c.Notify.MaxAttempts <= 0 {
		return fmt.Errorf("notify workers, queue size and attempts must be positive")
	}
	return nil
}
