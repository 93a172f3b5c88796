package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kevin07696/gocardless-service/internal/adapters/secrets"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	GoCardless GoCardlessConfig
	Checkout   CheckoutConfig
	Features   FeatureConfig
	Cron       CronConfig
	Admin      AdminConfig
	RateLimit  RateLimitConfig
	Secrets    secrets.Config
	Logger     LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	MetricsPort     int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// RedisConfig holds the scheme cache and event deduplication backend.
// An empty Addr disables both.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	EventTTL time.Duration
}

// KafkaConfig holds the webhook queue. Without brokers, webhooks are
// processed by an in-process worker pool.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	Workers     int
	LocalBuffer int
}

// GoCardlessConfig holds API credentials. Secrets may come from a secret
// manager instead, see SecretsConfig paths.
type GoCardlessConfig struct {
	AccessToken   string
	WebhookSecret string
	Sandbox       bool
	Timeout       time.Duration
}

// CheckoutConfig holds checkout behaviour and the URLs sent to the browser
type CheckoutConfig struct {
	InstantPayments   bool
	SavedBankAccounts bool
	Scheme            string

	// Formats take the order id as their only verb
	PaymentURLFormat string
	ReturnURLFormat  string
	RetryURLFormat   string

	TokenKey       string
	TokenExpiry    time.Duration
	SchemeCacheTTL time.Duration
}

// FeatureConfig toggles the optional payment strategies
type FeatureConfig struct {
	Subscriptions bool
	PreOrders     bool
}

// CronConfig holds the scheduled status-check trigger
type CronConfig struct {
	Secret    string
	BatchSize int
}

// AdminConfig holds the secret for host admin actions
type AdminConfig struct {
	Secret string
}

// RateLimitConfig bounds public routes per client IP
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables. A .env file in
// the working directory is read first when present; real environment
// variables take precedence.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort:     getEnvAsInt("METRICS_PORT", 9090),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: LoadDatabaseFromEnv(),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			EventTTL: getEnvAsDuration("REDIS_EVENT_TTL", 72*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:       getEnv("KAFKA_TOPIC", "gocardless-webhooks"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "gocardless-service"),
			Workers:     getEnvAsInt("KAFKA_WORKERS", 4),
			LocalBuffer: getEnvAsInt("WEBHOOK_QUEUE_BUFFER", 256),
		},
		GoCardless: GoCardlessConfig{
			AccessToken:   getEnv("GOCARDLESS_ACCESS_TOKEN", ""),
			WebhookSecret: getEnv("GOCARDLESS_WEBHOOK_SECRET", ""),
			Sandbox:       getEnvAsBool("GOCARDLESS_SANDBOX", true),
			Timeout:       getEnvAsDuration("GOCARDLESS_TIMEOUT", 30*time.Second),
		},
		Checkout: CheckoutConfig{
			InstantPayments:   getEnvAsBool("CHECKOUT_INSTANT_PAYMENTS", false),
			SavedBankAccounts: getEnvAsBool("CHECKOUT_SAVED_BANK_ACCOUNTS", true),
			Scheme:            getEnv("CHECKOUT_SCHEME", ""),
			PaymentURLFormat:  getEnv("CHECKOUT_PAYMENT_URL_FORMAT", "/checkout/order-pay/%s"),
			ReturnURLFormat:   getEnv("CHECKOUT_RETURN_URL_FORMAT", "/checkout/order-received/%s"),
			RetryURLFormat:    getEnv("CHECKOUT_RETRY_URL_FORMAT", "/checkout/order-pay/%s"),
			TokenKey:          getEnv("CHECKOUT_TOKEN_KEY", ""),
			TokenExpiry:       getEnvAsDuration("CHECKOUT_TOKEN_EXPIRY", time.Hour),
			SchemeCacheTTL:    getEnvAsDuration("CHECKOUT_SCHEME_CACHE_TTL", 24*time.Hour),
		},
		Features: FeatureConfig{
			Subscriptions: getEnvAsBool("FEATURE_SUBSCRIPTIONS", true),
			PreOrders:     getEnvAsBool("FEATURE_PRE_ORDERS", true),
		},
		Cron: CronConfig{
			Secret:    getEnv("CRON_SECRET", ""),
			BatchSize: getEnvAsInt("CRON_BATCH_SIZE", 100),
		},
		Admin: AdminConfig{
			Secret: getEnv("ADMIN_SECRET", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Secrets: secrets.Config{
			Backend:   getEnv("SECRETS_BACKEND", secrets.BackendEnv),
			LocalPath: getEnv("SECRETS_LOCAL_PATH", "./secrets"),
			AWS: secrets.AWSConfig{
				Region:   getEnv("AWS_REGION", "eu-west-2"),
				Profile:  getEnv("AWS_PROFILE", ""),
				Endpoint: getEnv("AWS_ENDPOINT", ""),
				CacheTTL: getEnvAsDuration("SECRETS_CACHE_TTL", 5*time.Minute),
			},
			Vault: secrets.VaultConfig{
				Address:      getEnv("VAULT_ADDR", ""),
				AuthMethod:   getEnv("VAULT_AUTH_METHOD", "token"),
				Token:        getEnv("VAULT_TOKEN", ""),
				RoleID:       getEnv("VAULT_ROLE_ID", ""),
				SecretID:     getEnv("VAULT_SECRET_ID", ""),
				K8sTokenPath: getEnv("VAULT_K8S_TOKEN_PATH", "/var/run/secrets/kubernetes.io/serviceaccount/token"),
				K8sRole:      getEnv("VAULT_K8S_ROLE", ""),
				Namespace:    getEnv("VAULT_NAMESPACE", ""),
				MountPath:    getEnv("VAULT_MOUNT_PATH", "secret"),
				KVVersion:    getEnv("VAULT_KV_VERSION", "v2"),
				CacheTTL:     getEnvAsDuration("SECRETS_CACHE_TTL", 5*time.Minute),
			},
			GCP: secrets.GCPConfig{
				ProjectID: getEnv("GCP_PROJECT_ID", ""),
				CacheTTL:  getEnvAsDuration("SECRETS_CACHE_TTL", 5*time.Minute),
			},
			AccessTokenPath:   getEnv("SECRETS_ACCESS_TOKEN_PATH", "GOCARDLESS_ACCESS_TOKEN"),
			WebhookSecretPath: getEnv("SECRETS_WEBHOOK_SECRET_PATH", "GOCARDLESS_WEBHOOK_SECRET"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields. GoCardless credentials are only required
// here when they are read from the environment.
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.UsesEnvSecrets() {
		if c.GoCardless.AccessToken == "" {
			return fmt.Errorf("GOCARDLESS_ACCESS_TOKEN is required")
		}
		if c.GoCardless.WebhookSecret == "" {
			return fmt.Errorf("GOCARDLESS_WEBHOOK_SECRET is required")
		}
	}
	if c.Cron.Secret == "" {
		return fmt.Errorf("CRON_SECRET is required")
	}
	if len(c.Checkout.TokenKey) < 32 {
		return fmt.Errorf("CHECKOUT_TOKEN_KEY must be at least 32 characters")
	}
	return nil
}

// LoadDatabaseFromEnv reads only the DB_* variables. The migrate and seed
// tools use it so they run without GoCardless credentials.
func LoadDatabaseFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Database: getEnv("DB_NAME", "gocardless_service"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
	}
}

// UsesEnvSecrets reports whether GoCardless credentials come from plain env vars
func (c *Config) UsesEnvSecrets() bool {
	return c.Secrets.Backend == "" || c.Secrets.Backend == secrets.BackendEnv
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as goose and pgxpool accept it
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice splits a comma separated value, dropping empty entries
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
