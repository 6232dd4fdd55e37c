package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration read once at startup.
type Config struct {
	Port string

	DBURL      string
	DBPassword string

	RedisURL string

	WorkerConcurrency int
	WorkerQueues      string

	AMQPURL      string
	AMQPExchange string

	BSP BSPConfig

	DefaultBusinessID string

	WebhookDedupeTTL  time.Duration
	BotStatusCacheTTL time.Duration

	LogLevel  string
	LogPretty bool
}

// BSPConfig holds the process-wide defaults for the WhatsApp provider.
// Per-business values stored in the database take precedence.
type BSPConfig struct {
	BaseURL      string
	APIKey       string
	SourceNumber string
	AppName      string
	Timeout      time.Duration
}

// Configured reports whether outbound sending can work without a per-business key.
func (b BSPConfig) Configured() bool {
	return b.APIKey != "" && b.SourceNumber != ""
}

const (
	DefaultPort              = "8080"
	DefaultBSPBaseURL        = "https://api.gupshup.io/wa/api/v1"
	DefaultBSPTimeout        = 15 * time.Second
	DefaultAMQPExchange      = "wabridge.events"
	DefaultWebhookDedupeTTL  = 24 * time.Hour
	DefaultBotStatusCacheTTL = 30 * time.Second
)

// FromEnv reads the configuration from environment variables.
// Call godotenv.Load before this to pick up a .env file.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", DefaultPort),
		DBURL:             strings.TrimSpace(os.Getenv("DB_URL")),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		WorkerConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 0),
		WorkerQueues:      strings.TrimSpace(os.Getenv("ASYNQ_QUEUES")),
		AMQPURL:           strings.TrimSpace(os.Getenv("AMQP_URL")),
		AMQPExchange:      getEnv("AMQP_EXCHANGE", DefaultAMQPExchange),
		DefaultBusinessID: strings.TrimSpace(os.Getenv("DEFAULT_BUSINESS_ID")),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogPretty:         getEnvBool("LOG_PRETTY", false),
		BSP: BSPConfig{
			BaseURL:      strings.TrimRight(getEnv("BSP_BASE_URL", DefaultBSPBaseURL), "/"),
			APIKey:       strings.TrimSpace(os.Getenv("BSP_API_KEY")),
			SourceNumber: strings.TrimSpace(os.Getenv("BSP_SOURCE_NUMBER")),
			AppName:      strings.TrimSpace(os.Getenv("BSP_APP_NAME")),
		},
	}

	var err error
	if cfg.BSP.Timeout, err = getEnvDuration("BSP_TIMEOUT", DefaultBSPTimeout); err != nil {
		return nil, err
	}
	if cfg.WebhookDedupeTTL, err = getEnvDuration("WEBHOOK_DEDUPE_TTL", DefaultWebhookDedupeTTL); err != nil {
		return nil, err
	}
	if cfg.BotStatusCacheTTL, err = getEnvDuration("BOT_STATUS_CACHE_TTL", DefaultBotStatusCacheTTL); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks fatal misconfiguration. Missing BSP credentials are not
// fatal: outbound sends report an upstream error instead.
func (c *Config) Validate() error {
	var errs []error
	if c.DBURL == "" {
		errs = append(errs, errors.New("config: DB_URL is required"))
	}
	if c.BSP.Timeout <= 0 {
		errs = append(errs, errors.New("config: BSP_TIMEOUT must be positive"))
	}
	if c.WebhookDedupeTTL < 0 {
		errs = append(errs, errors.New("config: WEBHOOK_DEDUPE_TTL must not be negative"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown LOG_LEVEL %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// getEnvDuration accepts Go duration strings ("30s") or a bare number of seconds.
func getEnvDuration(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s: %w", k, err)
	}
	return d, nil
}
