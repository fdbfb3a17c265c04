package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiredDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestLoad_DefaultValues(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, "localhost", cfg.SMTPDomain)
	assert.True(t, cfg.AutoProvisioningEnabled)
	assert.Equal(t, "./rawmail", cfg.RawArchivePath)
	assert.Equal(t, "mail", cfg.DKIMSelector)
	assert.Equal(t, "veltamail", cfg.SessionIssuer)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 10.0, cfg.RateLimitRequests)
	assert.Equal(t, 20, cfg.RateLimitBurst)
}

func TestLoad_DKIMConfig(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("DKIM_DOMAIN", "veltamail.test")
	os.Setenv("DKIM_SELECTOR", "s2025")
	os.Setenv("DKIM_KEY_FILE", "/etc/veltamail/dkim.pem")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("DKIM_DOMAIN")
		os.Unsetenv("DKIM_SELECTOR")
		os.Unsetenv("DKIM_KEY_FILE")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "veltamail.test", cfg.DKIMDomain)
	assert.Equal(t, "s2025", cfg.DKIMSelector)
	assert.Equal(t, "/etc/veltamail/dkim.pem", cfg.DKIMKeyFile)
}

func TestLoad_RelayConfig(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("RELAY_ADDR", "smtp.relay.test:465")
	os.Setenv("RELAY_USERNAME", "mailer")
	os.Setenv("RELAY_PASSWORD", "secret")
	os.Setenv("RELAY_IMPLICIT_TLS", "true")
	os.Setenv("SENDER_ADDRESS", "receipts@veltamail.test")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("RELAY_ADDR")
		os.Unsetenv("RELAY_USERNAME")
		os.Unsetenv("RELAY_PASSWORD")
		os.Unsetenv("RELAY_IMPLICIT_TLS")
		os.Unsetenv("SENDER_ADDRESS")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "smtp.relay.test:465", cfg.RelayAddr)
	// Host is derived from the dial address when not set explicitly
	assert.Equal(t, "smtp.relay.test", cfg.RelayHost)
	assert.Equal(t, "mailer", cfg.RelayUsername)
	assert.Equal(t, "secret", cfg.RelayPassword)
	assert.True(t, cfg.RelayImplicitTLS)
	assert.Equal(t, "receipts@veltamail.test", cfg.SenderAddress)
}

func TestLoad_InvalidRelayImplicitTLS(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("RELAY_IMPLICIT_TLS", "invalid")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("RELAY_IMPLICIT_TLS")
	}()

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "RELAY_IMPLICIT_TLS must be a valid boolean")
}

func TestLoad_SessionConfig(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("MAGIC_LINK_BASE_URL", "https://app.veltamail.test/login")
	os.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	os.Setenv("SESSION_TTL", "12h")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("MAGIC_LINK_BASE_URL")
		os.Unsetenv("SESSION_SECRET")
		os.Unsetenv("SESSION_TTL")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://app.veltamail.test/login", cfg.MagicLinkBaseURL)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.SessionSecret)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
}

func TestLoad_InvalidSessionTTL(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SESSION_TTL", "invalid")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("SESSION_TTL")
	}()

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TTL must be a valid duration")
}

func TestValidateProduction_RequiresAPIKey(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/test",
		AppEnv:         "production",
		AllowedOrigins: "http://example.com",
		APIKey:         "",
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "API_KEY is required")
}

func TestValidateProduction_RequiresAllowedOrigins(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/test",
		AppEnv:         "production",
		APIKey:         "test-key",
		AllowedOrigins: "",
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ALLOWED_ORIGINS is required")
}

func TestValidateProduction_NoWildcardOrigins(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/test",
		AppEnv:         "production",
		APIKey:         "test-key",
		AllowedOrigins: "*",
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "wildcard")
}

func TestValidateProduction_NoSSLDisable(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/test?sslmode=disable",
		AppEnv:         "production",
		APIKey:         "test-key",
		AllowedOrigins: "http://example.com",
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sslmode=disable")
}

func TestValidateProduction_RequiresDKIM(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/test?sslmode=require",
		AppEnv:         "production",
		APIKey:         "test-key",
		AllowedOrigins: "http://example.com",
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DKIM_DOMAIN and DKIM_KEY_FILE are required")
}

func TestValidateProduction_RequiresSessionSecret(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/test?sslmode=require",
		AppEnv:         "production",
		APIKey:         "test-key",
		AllowedOrigins: "http://example.com",
		DKIMDomain:     "veltamail.test",
		DKIMKeyFile:    "/etc/veltamail/dkim.pem",
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET is required")
}

func TestValidateProduction_ValidConfig(t *testing.T) {
	cfg := &Config{
		DatabaseURL:      "postgres://localhost/test?sslmode=require",
		AppEnv:           "production",
		APIKey:           "test-key",
		AllowedOrigins:   "http://example.com",
		DKIMDomain:       "veltamail.test",
		DKIMKeyFile:      "/etc/veltamail/dkim.pem",
		SessionSecret:    "0123456789abcdef0123456789abcdef",
		MagicLinkBaseURL: "https://app.veltamail.test/login",
	}

	err := cfg.ValidateProduction()
	assert.NoError(t, err)
}

func TestLoadWithValidation_FailFast(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test?sslmode=disable")
	os.Setenv("APP_ENV", "production")
	os.Setenv("API_KEY", "test-key")
	os.Setenv("ALLOWED_ORIGINS", "http://example.com")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("APP_ENV")
		os.Unsetenv("API_KEY")
		os.Unsetenv("ALLOWED_ORIGINS")
	}()

	_, err := LoadWithValidation()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sslmode=disable")
}

func TestLoadWithValidation_DevelopmentAllowsInsecure(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test?sslmode=disable")
	os.Setenv("APP_ENV", "development")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("APP_ENV")
	}()

	cfg, err := LoadWithValidation()
	assert.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/test",
		APIPort:        0,
		SMTPPort:       2525,
		RawArchivePath: "./rawmail",
		SessionTTL:     24 * time.Hour,
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "APIPort")
}

func TestValidate_ShortSessionSecret(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/test",
		APIPort:        8080,
		SMTPPort:       2525,
		RawArchivePath: "./rawmail",
		SessionSecret:  "short",
		SessionTTL:     24 * time.Hour,
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		DatabaseURL:    "postgres://localhost/test",
		APIPort:        8080,
		SMTPPort:       2525,
		RawArchivePath: "./rawmail",
		SessionTTL:     24 * time.Hour,
	}

	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestLoad_SecurityConfig(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("API_KEY", "my-secret-key")
	os.Setenv("ALLOWED_ORIGINS", "http://localhost:3000,http://example.com")
	os.Setenv("APP_ENV", "staging")
	os.Setenv("RATE_LIMIT_REQUESTS", "20")
	os.Setenv("RATE_LIMIT_BURST", "50")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("API_KEY")
		os.Unsetenv("ALLOWED_ORIGINS")
		os.Unsetenv("APP_ENV")
		os.Unsetenv("RATE_LIMIT_REQUESTS")
		os.Unsetenv("RATE_LIMIT_BURST")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "my-secret-key", cfg.APIKey)
	assert.Equal(t, "http://localhost:3000,http://example.com", cfg.AllowedOrigins)
	assert.Equal(t, "staging", cfg.AppEnv)
	assert.Equal(t, 20.0, cfg.RateLimitRequests)
	assert.Equal(t, 50, cfg.RateLimitBurst)
}
