package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_authnet/internal/models"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "authnet")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, models.LogLevelError, cfg.AuthNet.LogLevel)
	assert.Equal(t, TransactionTypeAuthCapture, cfg.AuthNet.TransactionType)
	assert.False(t, cfg.AuthNet.IsAuthOnly())
	assert.Equal(t, []string{"USD"}, cfg.AuthNet.SupportedCurrencies)
	assert.Equal(t, 30*time.Second, cfg.AuthNet.Timeout)
	assert.Equal(t, "/integrations/payment-success", cfg.Checkout.SuccessPath)
	assert.Equal(t, "/integrations/payment-failed", cfg.Checkout.FailurePath)
	assert.Equal(t, 20, cfg.Checkout.RatePerMinute)
	assert.Equal(t, 5, cfg.Checkout.RateBurst)
	assert.Equal(t, 2*time.Minute, cfg.SubmissionLockTTL)
}

func TestLoad_AuthNetOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AUTHNET_LOG_LEVEL", "debug")
	t.Setenv("AUTHNET_TRANSACTION_TYPE", "auth_only")
	t.Setenv("AUTHNET_USE_SANDBOX", "true")
	t.Setenv("AUTHNET_SUPPORTED_CURRENCIES", "usd, cad ,")
	t.Setenv("CHECKOUT_BASE_URL", "https://pay.example.com/")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, models.LogLevelDebug, cfg.AuthNet.LogLevel)
	assert.True(t, cfg.AuthNet.IsAuthOnly())
	assert.True(t, cfg.AuthNet.UseSandbox)
	assert.Equal(t, []string{"USD", "CAD"}, cfg.AuthNet.SupportedCurrencies)
	assert.Equal(t, "https://pay.example.com", cfg.Checkout.BaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"log level", "AUTHNET_LOG_LEVEL", "Verbose"},
		{"transaction type", "AUTHNET_TRANSACTION_TYPE", "capture_only"},
		{"timeout", "AUTHNET_TIMEOUT", "soon"},
		{"missing jwt", "JWT_SECRET", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()

			assert.Error(t, err)
		})
	}
}
