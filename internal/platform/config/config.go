package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Schedules holds the cron expression of each sweep.
type Schedules struct {
	AutoDebit        string
	PayoutRetry      string
	ScheduledPayouts string
	Reminders        string
}

// SweepConfig bounds the work a single sweep run takes on.
type SweepConfig struct {
	BatchSize   int
	Parallelism int
	ClaimLease  time.Duration
}

// RetryConfig is the circuit breaker shared by auto-debits and payouts.
type RetryConfig struct {
	MaxRetries int
	Cooldown   time.Duration
}

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	MigrationsPath string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	LogLevel       string
	JWTSecret      string
	JWTIssuer      string
	RateLimit      string
	EnableMetrics  bool
	CORSOrigins    []string

	RedisURL     string
	AMQPURL      string
	JobsExchange string
	JobsQueue    string

	LedgerBaseURL  string
	LedgerAPIKey   string
	HTTPTimeout    time.Duration
	HTTPMaxRetries int

	SMSGatewayURL string
	SMSAPIKey     string
	SMSSenderID   string
	ResendAPIKey  string
	EmailFrom     string

	Schedules             Schedules
	Sweep                 SweepConfig
	Retry                 RetryConfig
	IdempotencyTTL        time.Duration
	WorkerConcurrency     int
	RotationSkippedPolicy string
	ReminderWindow        time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:    v.GetString("PGSQL_URL"),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),
		Port:           v.GetString("PORT"),
		IsProduction:   v.GetBool("IS_PRODUCTION"),
		EnableDBCheck:  v.GetBool("ENABLE_DB_CHECK"),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTIssuer:      v.GetString("JWT_ISSUER"),
		RateLimit:      v.GetString("RATE_LIMIT"),
		EnableMetrics:  v.GetBool("ENABLE_METRICS"),
		CORSOrigins:    splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		RedisURL:     v.GetString("REDIS_URL"),
		AMQPURL:      v.GetString("RABBITMQ_URL"),
		JobsExchange: v.GetString("JOBS_EXCHANGE"),
		JobsQueue:    v.GetString("JOBS_QUEUE"),

		LedgerBaseURL:  v.GetString("LEDGER_BASE_URL"),
		LedgerAPIKey:   v.GetString("LEDGER_API_KEY"),
		HTTPTimeout:    v.GetDuration("HTTP_CLIENT_TIMEOUT"),
		HTTPMaxRetries: v.GetInt("HTTP_CLIENT_MAX_RETRIES"),

		SMSGatewayURL: v.GetString("SMS_GATEWAY_URL"),
		SMSAPIKey:     v.GetString("SMS_API_KEY"),
		SMSSenderID:   v.GetString("SMS_SENDER_ID"),
		ResendAPIKey:  v.GetString("RESEND_API_KEY"),
		EmailFrom:     v.GetString("EMAIL_FROM"),

		Schedules: Schedules{
			AutoDebit:        v.GetString("CRON_AUTODEBIT"),
			PayoutRetry:      v.GetString("CRON_PAYOUT_RETRY"),
			ScheduledPayouts: v.GetString("CRON_SCHEDULED_PAYOUTS"),
			Reminders:        v.GetString("CRON_REMINDERS"),
		},
		Sweep: SweepConfig{
			BatchSize:   v.GetInt("SWEEP_BATCH_SIZE"),
			Parallelism: v.GetInt("SWEEP_PARALLELISM"),
			ClaimLease:  v.GetDuration("SWEEP_CLAIM_LEASE"),
		},
		Retry: RetryConfig{
			MaxRetries: v.GetInt("RETRY_MAX_ATTEMPTS"),
			Cooldown:   v.GetDuration("RETRY_COOLDOWN"),
		},
		IdempotencyTTL:        v.GetDuration("IDEMPOTENCY_TTL"),
		WorkerConcurrency:     v.GetInt("WORKER_CONCURRENCY"),
		RotationSkippedPolicy: strings.ToLower(v.GetString("ROTATION_SKIPPED_POLICY")),
		ReminderWindow:        v.GetDuration("REMINDER_WINDOW"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	if cfg.LedgerBaseURL == "" {
		log.Println("Warning: LEDGER_BASE_URL not set. Contributions and payouts will fail.")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const defaultJWTSecret = "a-very-secret-key-should-be-longer-and-random"

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "chama-cycles")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("JOBS_EXCHANGE", "chama.jobs")
	v.SetDefault("JOBS_QUEUE", "chama.jobs.worker")

	v.SetDefault("LEDGER_BASE_URL", "")
	v.SetDefault("LEDGER_API_KEY", "")
	v.SetDefault("HTTP_CLIENT_TIMEOUT", "15s")
	v.SetDefault("HTTP_CLIENT_MAX_RETRIES", 2)

	v.SetDefault("SMS_GATEWAY_URL", "")
	v.SetDefault("SMS_API_KEY", "")
	v.SetDefault("SMS_SENDER_ID", "CHAMA")
	v.SetDefault("RESEND_API_KEY", "")
	v.SetDefault("EMAIL_FROM", "Chama <no-reply@chama.local>")

	// Every day at 06:00, hourly on the hour, every 5 minutes, every day at 09:00.
	v.SetDefault("CRON_AUTODEBIT", "0 6 * * *")
	v.SetDefault("CRON_PAYOUT_RETRY", "0 * * * *")
	v.SetDefault("CRON_SCHEDULED_PAYOUTS", "*/5 * * * *")
	v.SetDefault("CRON_REMINDERS", "0 9 * * *")

	v.SetDefault("SWEEP_BATCH_SIZE", 200)
	v.SetDefault("SWEEP_PARALLELISM", 1)
	v.SetDefault("SWEEP_CLAIM_LEASE", "5m")
	v.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	v.SetDefault("RETRY_COOLDOWN", "6h")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("WORKER_CONCURRENCY", 4)
	v.SetDefault("ROTATION_SKIPPED_POLICY", "bypass")
	v.SetDefault("REMINDER_WINDOW", "24h")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Sweep.BatchSize < 1 {
		return fmt.Errorf("SWEEP_BATCH_SIZE must be positive, got %d", c.Sweep.BatchSize)
	}
	if c.Sweep.Parallelism < 1 {
		return fmt.Errorf("SWEEP_PARALLELISM must be positive, got %d", c.Sweep.Parallelism)
	}
	if c.Retry.MaxRetries < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be positive, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.Cooldown < 0 {
		return fmt.Errorf("RETRY_COOLDOWN must not be negative, got %s", c.Retry.Cooldown)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.WorkerConcurrency)
	}
	switch c.RotationSkippedPolicy {
	case "bypass", "revisit":
	default:
		return fmt.Errorf("ROTATION_SKIPPED_POLICY must be bypass or revisit, got %q", c.RotationSkippedPolicy)
	}
	return nil
}
