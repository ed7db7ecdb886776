package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Operator
	OperatorCode string

	// Chain simulation
	Network         string
	Token           string
	WatcherEnabled  bool
	WatcherInterval time.Duration

	// Confirmation tracking
	ConfirmInterval       time.Duration
	RequiredConfirmations int32
	PassThrough           bool

	// Payout pipeline
	PayoutInterval  time.Duration
	PayoutStepDelay time.Duration
	PayoutBatchSize int32
	RequireApproval bool

	// EOD netting
	EodInterval time.Duration

	// Risk gate
	CapPerDeal      decimal.Decimal
	CapPerTx        decimal.Decimal
	CapOpenExposure decimal.Decimal

	// Webhook delivery
	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration

	// Stuck payout alerting
	AlertInterval   time.Duration
	QueuedMaxAge    time.Duration
	BroadcastMaxAge time.Duration

	// Rate limiting
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:         getEnv("ENV", "development"),

		OperatorCode: getEnv("OPERATOR_CODE", ""),

		Network:         getEnv("CHAIN_NETWORK", "TRON"),
		Token:           getEnv("CHAIN_TOKEN", "USDT"),
		WatcherEnabled:  getEnvBool("WATCHER_ENABLED", false),
		WatcherInterval: getEnvDuration("WATCHER_INTERVAL", 10*time.Second),

		ConfirmInterval:       getEnvDuration("CONFIRM_INTERVAL", 7*time.Second),
		RequiredConfirmations: int32(getEnvInt("REQUIRED_CONFIRMATIONS", 3)),
		PassThrough:           getEnvBool("PASS_THROUGH", true),

		PayoutInterval:  getEnvDuration("PAYOUT_INTERVAL", 3*time.Second),
		PayoutStepDelay: getEnvDuration("PAYOUT_STEP_DELAY", 2*time.Second),
		PayoutBatchSize: int32(getEnvInt("PAYOUT_BATCH_SIZE", 3)),
		RequireApproval: getEnvBool("REQUIRE_APPROVAL", false),

		EodInterval: getEnvDuration("EOD_INTERVAL", 5*time.Second),

		CapPerDeal:      getEnvDecimal("CAP_PER_DEAL", "10000"),
		CapPerTx:        getEnvDecimal("CAP_PER_TX", "10000"),
		CapOpenExposure: getEnvDecimal("CAP_OPEN_EXPOSURE", "50000"),

		WebhookURL:     getEnv("WEBHOOK_URL", ""),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
		WebhookTimeout: getEnvDuration("WEBHOOK_TIMEOUT", 5*time.Second),

		AlertInterval:   getEnvDuration("ALERT_INTERVAL", time.Minute),
		QueuedMaxAge:    getEnvDuration("ALERT_QUEUED_MAX_AGE", 15*time.Minute),
		BroadcastMaxAge: getEnvDuration("ALERT_BROADCAST_MAX_AGE", 30*time.Minute),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RequiredConfirmations < 1 {
		return fmt.Errorf("REQUIRED_CONFIRMATIONS must be at least 1")
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	return decimal.RequireFromString(defaultValue)
}
