package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server ports
	APIPort  int
	SMTPPort int

	// Inbound SMTP
	SMTPDomain string

	// Features
	AutoProvisioningEnabled bool

	// Storage
	RawArchivePath string

	// DKIM signing
	DKIMDomain   string
	DKIMSelector string
	DKIMKeyFile  string

	// Outbound relay
	RelayAddr        string
	RelayHost        string
	RelayUsername    string
	RelayPassword    string
	RelayImplicitTLS bool
	SenderAddress    string

	// Magic links and sessions
	MagicLinkBaseURL string
	SessionSecret    string
	SessionIssuer    string
	SessionTTL       time.Duration

	// Logging
	LogLevel string

	// Security
	APIKey         string
	AllowedOrigins string
	AppEnv         string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	// Required: DATABASE_URL
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	// API_PORT (default: 8080)
	apiPort := os.Getenv("API_PORT")
	if apiPort == "" {
		cfg.APIPort = 8080
	} else {
		port, err := strconv.Atoi(apiPort)
		if err != nil {
			return nil, fmt.Errorf("API_PORT must be a valid integer: %w", err)
		}
		cfg.APIPort = port
	}

	// SMTP_PORT (default: 2525)
	smtpPort := os.Getenv("SMTP_PORT")
	if smtpPort == "" {
		cfg.SMTPPort = 2525
	} else {
		port, err := strconv.Atoi(smtpPort)
		if err != nil {
			return nil, fmt.Errorf("SMTP_PORT must be a valid integer: %w", err)
		}
		cfg.SMTPPort = port
	}

	// SMTP_DOMAIN (default: localhost)
	cfg.SMTPDomain = os.Getenv("SMTP_DOMAIN")
	if cfg.SMTPDomain == "" {
		cfg.SMTPDomain = "localhost"
	}

	// AUTO_PROVISIONING_ENABLED (default: true)
	autoProvisioning := os.Getenv("AUTO_PROVISIONING_ENABLED")
	if autoProvisioning == "" {
		cfg.AutoProvisioningEnabled = true
	} else {
		enabled, err := strconv.ParseBool(autoProvisioning)
		if err != nil {
			return nil, fmt.Errorf("AUTO_PROVISIONING_ENABLED must be a valid boolean: %w", err)
		}
		cfg.AutoProvisioningEnabled = enabled
	}

	// RAW_ARCHIVE_PATH (default: ./rawmail)
	cfg.RawArchivePath = os.Getenv("RAW_ARCHIVE_PATH")
	if cfg.RawArchivePath == "" {
		cfg.RawArchivePath = "./rawmail"
	}

	// DKIM signing configuration
	cfg.DKIMDomain = os.Getenv("DKIM_DOMAIN")
	cfg.DKIMSelector = os.Getenv("DKIM_SELECTOR")
	if cfg.DKIMSelector == "" {
		cfg.DKIMSelector = "mail"
	}
	cfg.DKIMKeyFile = os.Getenv("DKIM_KEY_FILE")

	// Outbound relay configuration
	cfg.RelayAddr = os.Getenv("RELAY_ADDR")
	cfg.RelayHost = os.Getenv("RELAY_HOST")
	if cfg.RelayHost == "" && cfg.RelayAddr != "" {
		// Derive the TLS server name from the dial address
		if host, _, ok := strings.Cut(cfg.RelayAddr, ":"); ok {
			cfg.RelayHost = host
		} else {
			cfg.RelayHost = cfg.RelayAddr
		}
	}
	cfg.RelayUsername = os.Getenv("RELAY_USERNAME")
	cfg.RelayPassword = os.Getenv("RELAY_PASSWORD")
	if implicitTLS := os.Getenv("RELAY_IMPLICIT_TLS"); implicitTLS != "" {
		v, err := strconv.ParseBool(implicitTLS)
		if err != nil {
			return nil, fmt.Errorf("RELAY_IMPLICIT_TLS must be a valid boolean: %w", err)
		}
		cfg.RelayImplicitTLS = v
	}
	cfg.SenderAddress = os.Getenv("SENDER_ADDRESS")

	// Magic link and session configuration
	cfg.MagicLinkBaseURL = os.Getenv("MAGIC_LINK_BASE_URL")
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.SessionIssuer = os.Getenv("SESSION_ISSUER")
	if cfg.SessionIssuer == "" {
		cfg.SessionIssuer = "veltamail"
	}
	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("SESSION_TTL must be a valid duration: %w", err)
		}
		cfg.SessionTTL = d
	} else {
		cfg.SessionTTL = 24 * time.Hour
	}

	// LOG_LEVEL (default: info)
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// Security configuration
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = os.Getenv("APP_ENV")
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	// Rate limiting configuration
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	} else {
		cfg.RateLimitRequests = 10.0
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimitBurst = v
		}
	} else {
		cfg.RateLimitBurst = 20
	}

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Production-specific validation
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTPPort must be between 1 and 65535")
	}
	if c.RawArchivePath == "" {
		return fmt.Errorf("RawArchivePath cannot be empty")
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	// Check for sslmode=disable in database URL
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	if c.DKIMDomain == "" || c.DKIMKeyFile == "" {
		return fmt.Errorf("DKIM_DOMAIN and DKIM_KEY_FILE are required in production")
	}

	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}

	if c.MagicLinkBaseURL == "" {
		return fmt.Errorf("MAGIC_LINK_BASE_URL is required in production")
	}

	return nil
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.Int("smtp_port", c.SMTPPort),
		slog.String("smtp_domain", c.SMTPDomain),
		slog.Bool("auto_provisioning", c.AutoProvisioningEnabled),
		slog.String("raw_archive_path", c.RawArchivePath),
		slog.String("dkim_domain", c.DKIMDomain),
		slog.String("dkim_selector", c.DKIMSelector),
		slog.Bool("relay_configured", c.RelayAddr != ""),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("session_secret_set", c.SessionSecret != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
	)
}
