package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/GTDGit/gtd_authnet/internal/models"
)

// Transaction types accepted in AUTHNET_TRANSACTION_TYPE.
const (
	TransactionTypeAuthCapture = "auth_capture"
	TransactionTypeAuthOnly    = "auth_only"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	DB       DatabaseConfig
	Redis    RedisConfig
	AuthNet  AuthNetConfig
	Checkout CheckoutConfig
	AWS      AWSConfig
	Admin    AdminBootstrapConfig

	SubmissionLockTTL time.Duration
	CallbackTimeout   time.Duration
	CORSAllowedHosts  []string
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// AuthNetConfig contains credentials and behaviour of the Authorize.Net integration.
type AuthNetConfig struct {
	APILoginID     string
	TransactionKey string
	// TransactionKeySecret is an AWS Secrets Manager id. When set it takes
	// precedence over TransactionKey.
	TransactionKeySecret string
	// Sandbox credentials fall back to the live ones when unset.
	SandboxAPILoginID     string
	SandboxTransactionKey string
	UseSandbox            bool
	LogLevel              models.LogLevel
	TransactionType       string
	SupportedCurrencies   []string
	Timeout               time.Duration
}

// CheckoutConfig contains the browser-facing URLs and redirect overrides.
type CheckoutConfig struct {
	BaseURL         string
	SuccessPath     string
	FailurePath     string
	RedirectTo      string
	RedirectMessage string
	RatePerMinute   int
	RateBurst       int
}

// AdminBootstrapConfig names the console user created on first start.
// Bootstrap is skipped when Email or Password is empty.
type AdminBootstrapConfig struct {
	Email    string
	Password string
	Name     string
}

// AWSConfig contains AWS general configuration
type AWSConfig struct {
	Region string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Authorize.Net
	var err error
	cfg.AuthNet = AuthNetConfig{
		APILoginID:            getEnv("AUTHNET_API_LOGIN_ID", ""),
		TransactionKey:        getEnv("AUTHNET_TRANSACTION_KEY", ""),
		TransactionKeySecret:  getEnv("AUTHNET_TRANSACTION_KEY_SECRET", ""),
		SandboxAPILoginID:     getEnv("AUTHNET_SANDBOX_API_LOGIN_ID", ""),
		SandboxTransactionKey: getEnv("AUTHNET_SANDBOX_TRANSACTION_KEY", ""),
		UseSandbox:            getEnvBool("AUTHNET_USE_SANDBOX", false),
		TransactionType:       getEnv("AUTHNET_TRANSACTION_TYPE", TransactionTypeAuthCapture),
		SupportedCurrencies:   getEnvList("AUTHNET_SUPPORTED_CURRENCIES", "USD"),
	}
	if cfg.AuthNet.LogLevel, err = models.ParseLogLevel(getEnv("AUTHNET_LOG_LEVEL", "Error")); err != nil {
		return nil, fmt.Errorf("invalid AUTHNET_LOG_LEVEL: %w", err)
	}
	if cfg.AuthNet.Timeout, err = parseDurationEnv("AUTHNET_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid AUTHNET_TIMEOUT: %w", err)
	}
	switch cfg.AuthNet.TransactionType {
	case TransactionTypeAuthCapture, TransactionTypeAuthOnly:
	default:
		return nil, fmt.Errorf("invalid AUTHNET_TRANSACTION_TYPE %q: expected %s or %s",
			cfg.AuthNet.TransactionType, TransactionTypeAuthCapture, TransactionTypeAuthOnly)
	}

	// Checkout
	cfg.Checkout = CheckoutConfig{
		BaseURL:         strings.TrimSuffix(getEnv("CHECKOUT_BASE_URL", "http://localhost:8080"), "/"),
		SuccessPath:     getEnv("CHECKOUT_SUCCESS_PATH", "/integrations/payment-success"),
		FailurePath:     getEnv("CHECKOUT_FAILURE_PATH", "/integrations/payment-failed"),
		RedirectTo:      getEnv("CHECKOUT_REDIRECT_TO", ""),
		RedirectMessage: getEnv("CHECKOUT_REDIRECT_MESSAGE", ""),
		RatePerMinute:   getEnvInt("CHECKOUT_RATE_PER_MINUTE", 20),
		RateBurst:       getEnvInt("CHECKOUT_RATE_BURST", 5),
	}

	// AWS (Secrets Manager)
	cfg.AWS = AWSConfig{
		Region: getEnv("AWS_REGION", "us-east-1"),
	}

	cfg.Admin = AdminBootstrapConfig{
		Email:    getEnv("ADMIN_BOOTSTRAP_EMAIL", ""),
		Password: getEnv("ADMIN_BOOTSTRAP_PASSWORD", ""),
		Name:     getEnv("ADMIN_BOOTSTRAP_NAME", "Administrator"),
	}

	cfg.CORSAllowedHosts = getEnvList("CORS_ALLOWED_HOSTS", "localhost:3000,127.0.0.1:3000")

	if cfg.SubmissionLockTTL, err = parseDurationEnv("SUBMISSION_LOCK_TTL", "2m"); err != nil {
		return nil, fmt.Errorf("invalid SUBMISSION_LOCK_TTL: %w", err)
	}
	if cfg.CallbackTimeout, err = parseDurationEnv("CALLBACK_TIMEOUT", "10s"); err != nil {
		return nil, fmt.Errorf("invalid CALLBACK_TIMEOUT: %w", err)
	}

	// Basic validation for DB parameters.
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	return cfg, nil
}

// SandboxCredentials returns the sandbox login id and key, falling back to
// the live credentials.
func (c *AuthNetConfig) SandboxCredentials() (string, string) {
	loginID, key := c.SandboxAPILoginID, c.SandboxTransactionKey
	if loginID == "" {
		loginID = c.APILoginID
	}
	if key == "" {
		key = c.TransactionKey
	}
	return loginID, key
}

// IsAuthOnly reports whether charges only reserve funds.
func (c *AuthNetConfig) IsAuthOnly() bool {
	return c.TransactionType == TransactionTypeAuthOnly
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool returns the value of an environment variable as a bool or a default if empty/invalid.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getEnvList splits a comma separated variable into upper-cased, trimmed items.
func getEnvList(key, def string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, def), ",") {
		if item = strings.ToUpper(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
