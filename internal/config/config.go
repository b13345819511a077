package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted in PaymentsConfig.
const (
	ProviderPhonePe  = "phonepe"
	ProviderRazorpay = "razorpay"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NewRelic  NewRelicConfig
	PhonePe   PhonePeConfig
	Razorpay  RazorpayConfig
	Payments  PaymentsConfig
	Sweep     SweepConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
// URL takes precedence over the individual fields when set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the connection string for lib/pq.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// PhonePeConfig holds PhonePe checkout credentials and endpoints.
type PhonePeConfig struct {
	ClientID         string
	ClientSecret     string
	ClientVersion    string
	AuthURL          string
	BaseURL          string
	CallbackUsername string
	CallbackPassword string
	Timeout          time.Duration
}

// RazorpayConfig holds Razorpay credentials.
type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
}

// PaymentsConfig holds settings shared by every payment domain.
type PaymentsConfig struct {
	SigningSecret   string
	FrontendBaseURL string
	Currency        string
	NodeID          int64
	// Providers maps a payment domain (donation, product, puja) to a provider name.
	Providers map[string]string
}

// SweepConfig controls the stale order sweep.
type SweepConfig struct {
	Schedule  string
	StaleAge  time.Duration
	BatchSize int
	LockTTL   time.Duration
}

// RateLimitConfig controls per-client rate limiting of payment routes.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load loads configuration from environment variables.
// If CONFIG_FILE names a YAML file, its values become the defaults that
// environment variables override.
func Load() (*Config, error) {
	base := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, base); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", base.Server.Port),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", base.Server.ReadTimeout),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", base.Server.WriteTimeout),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", base.Database.URL),
			Host:     getEnv("DB_HOST", base.Database.Host),
			Port:     getEnv("DB_PORT", base.Database.Port),
			User:     getEnv("DB_USER", base.Database.User),
			Password: getEnv("DB_PASSWORD", base.Database.Password),
			DBName:   getEnv("DB_NAME", base.Database.DBName),
			SSLMode:  getEnv("DB_SSLMODE", base.Database.SSLMode),

			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", base.Database.MaxOpenConns),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", base.Database.MaxIdleConns),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", base.Database.ConnMaxLifetime),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", base.Redis.Addr),
			Password: getEnv("REDIS_PASSWORD", base.Redis.Password),
			DB:       getIntEnv("REDIS_DB", base.Redis.DB),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", base.NewRelic.AppName),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", base.NewRelic.LicenseKey),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", base.NewRelic.Enabled),
		},
		PhonePe: PhonePeConfig{
			ClientID:         getEnv("PHONEPE_CLIENT_ID", base.PhonePe.ClientID),
			ClientSecret:     getEnv("PHONEPE_CLIENT_SECRET", base.PhonePe.ClientSecret),
			ClientVersion:    getEnv("PHONEPE_CLIENT_VERSION", base.PhonePe.ClientVersion),
			AuthURL:          getEnv("PHONEPE_AUTH_URL", base.PhonePe.AuthURL),
			BaseURL:          getEnv("PHONEPE_BASE_URL", base.PhonePe.BaseURL),
			CallbackUsername: getEnv("PHONEPE_CALLBACK_USERNAME", base.PhonePe.CallbackUsername),
			CallbackPassword: getEnv("PHONEPE_CALLBACK_PASSWORD", base.PhonePe.CallbackPassword),
			Timeout:          getDurationEnv("PHONEPE_TIMEOUT", base.PhonePe.Timeout),
		},
		Razorpay: RazorpayConfig{
			KeyID:         getEnv("RAZORPAY_KEY_ID", base.Razorpay.KeyID),
			KeySecret:     getEnv("RAZORPAY_KEY_SECRET", base.Razorpay.KeySecret),
			WebhookSecret: getEnv("RAZORPAY_WEBHOOK_SECRET", base.Razorpay.WebhookSecret),
			BaseURL:       getEnv("RAZORPAY_BASE_URL", base.Razorpay.BaseURL),
			Timeout:       getDurationEnv("RAZORPAY_TIMEOUT", base.Razorpay.Timeout),
		},
		Payments: PaymentsConfig{
			// Razorpay signs checkout responses with the key secret.
			SigningSecret:   getEnv("PAYMENT_SIGNING_SECRET", firstNonEmpty(base.Payments.SigningSecret, os.Getenv("RAZORPAY_KEY_SECRET"), base.Razorpay.KeySecret)),
			FrontendBaseURL: strings.TrimRight(getEnv("FRONTEND_URL", base.Payments.FrontendBaseURL), "/"),
			Currency:        getEnv("PAYMENT_CURRENCY", base.Payments.Currency),
			NodeID:          int64(getIntEnv("ORDER_ID_NODE", int(base.Payments.NodeID))),
			Providers: map[string]string{
				"donation": getEnv("DONATION_PROVIDER", base.Payments.Providers["donation"]),
				"product":  getEnv("PRODUCT_PROVIDER", base.Payments.Providers["product"]),
				"puja":     getEnv("PUJA_PROVIDER", base.Payments.Providers["puja"]),
			},
		},
		Sweep: SweepConfig{
			Schedule:  getEnv("SWEEP_SCHEDULE", base.Sweep.Schedule),
			StaleAge:  getDurationEnv("SWEEP_STALE_AGE", base.Sweep.StaleAge),
			BatchSize: getIntEnv("SWEEP_BATCH_SIZE", base.Sweep.BatchSize),
			LockTTL:   getDurationEnv("SWEEP_LOCK_TTL", base.Sweep.LockTTL),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloatEnv("RATE_LIMIT_RPS", base.RateLimit.RPS),
			Burst: getIntEnv("RATE_LIMIT_BURST", base.RateLimit.Burst),
		},
	}, nil
}

// Validate checks that every configured payment provider has credentials.
// The server refuses to start payment routes when this fails.
func (c *Config) Validate() error {
	var errs []error

	if c.Payments.SigningSecret == "" {
		errs = append(errs, errors.New("PAYMENT_SIGNING_SECRET (or RAZORPAY_KEY_SECRET) is required"))
	}
	if c.Payments.FrontendBaseURL == "" {
		errs = append(errs, errors.New("FRONTEND_URL is required"))
	}
	if c.Payments.NodeID < 0 || c.Payments.NodeID > 1023 {
		errs = append(errs, fmt.Errorf("ORDER_ID_NODE must be between 0 and 1023, got %d", c.Payments.NodeID))
	}

	for _, paymentDomain := range []string{"donation", "product", "puja"} {
		switch provider := c.Payments.Providers[paymentDomain]; provider {
		case ProviderPhonePe:
			if c.PhonePe.ClientID == "" || c.PhonePe.ClientSecret == "" || c.PhonePe.ClientVersion == "" {
				errs = append(errs, fmt.Errorf("%s payments use phonepe but PHONEPE_CLIENT_ID/SECRET/VERSION are not set", paymentDomain))
			}
		case ProviderRazorpay:
			if c.Razorpay.KeyID == "" || c.Razorpay.KeySecret == "" {
				errs = append(errs, fmt.Errorf("%s payments use razorpay but RAZORPAY_KEY_ID/SECRET are not set", paymentDomain))
			}
		default:
			errs = append(errs, fmt.Errorf("%s payments have unknown provider %q", paymentDomain, provider))
		}
	}

	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "devalayaum",
			SSLMode:  "disable",

			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		NewRelic: NewRelicConfig{
			AppName: "devalayaum-payments",
		},
		PhonePe: PhonePeConfig{
			ClientVersion: "1",
			AuthURL:       "https://api-preprod.phonepe.com/apis/pg-sandbox/v1/oauth/token",
			BaseURL:       "https://api-preprod.phonepe.com/apis/pg-sandbox",
			Timeout:       15 * time.Second,
		},
		Razorpay: RazorpayConfig{
			BaseURL: "https://api.razorpay.com",
			Timeout: 15 * time.Second,
		},
		Payments: PaymentsConfig{
			FrontendBaseURL: "http://localhost:5173",
			Currency:        "INR",
			NodeID:          1,
			Providers: map[string]string{
				"donation": ProviderRazorpay,
				"product":  ProviderPhonePe,
				"puja":     ProviderPhonePe,
			},
		},
		Sweep: SweepConfig{
			Schedule:  "0 */15 * * * *",
			StaleAge:  2 * time.Hour,
			BatchSize: 100,
			LockTTL:   10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
	}
}

// loadFile overlays a YAML file onto cfg.
func loadFile(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
