package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veltamail/veltamail-backend/internal/api"
	"github.com/veltamail/veltamail-backend/internal/auth"
	"github.com/veltamail/veltamail-backend/internal/config"
	"github.com/veltamail/veltamail-backend/internal/database"
	"github.com/veltamail/veltamail-backend/internal/dkim"
	seclog "github.com/veltamail/veltamail-backend/internal/logger"
	"github.com/veltamail/veltamail-backend/internal/mailer"
	"github.com/veltamail/veltamail-backend/internal/repository"
	"github.com/veltamail/veltamail-backend/internal/services"
	"github.com/veltamail/veltamail-backend/internal/smtp"
	"github.com/veltamail/veltamail-backend/internal/storage"
	"github.com/veltamail/veltamail-backend/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting veltamail backend")
	cfg.LogConfig(logger)

	// Database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	domainRepo := repository.NewDomainRepository(db)
	mailboxRepo := repository.NewMailboxRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	tokenRepo := repository.NewMagicLinkRepository(db)

	// Raw message archive
	archive, err := storage.NewLocalArchive(cfg.RawArchivePath)
	if err != nil {
		return fmt.Errorf("failed to initialize raw archive: %w", err)
	}

	// DKIM signing. Without a key the relay mailer stays disabled: unsigned
	// outbound mail gets spam-flagged or rejected by receivers.
	var signer *dkim.Signer
	if cfg.DKIMDomain != "" && cfg.DKIMKeyFile != "" {
		signer, err = dkim.NewSigner(dkim.Config{
			Domain:   cfg.DKIMDomain,
			Selector: cfg.DKIMSelector,
			KeyFile:  cfg.DKIMKeyFile,
		})
		if err != nil {
			return fmt.Errorf("failed to set up DKIM signing: %w", err)
		}
		logger.Info("DKIM signing enabled",
			slog.String("domain", cfg.DKIMDomain),
			slog.String("selector", cfg.DKIMSelector))
	} else {
		logger.Warn("DKIM signing not configured, outbound mail disabled")
	}

	// Outbound relay
	var outbound mailer.Mailer
	if cfg.RelayAddr != "" && signer != nil {
		smtpMailer := mailer.NewSMTPMailer(mailer.TransportConfig{
			Addr:        cfg.RelayAddr,
			Host:        cfg.RelayHost,
			Username:    cfg.RelayUsername,
			Password:    cfg.RelayPassword,
			ImplicitTLS: cfg.RelayImplicitTLS,
		}, signer, logger)
		defer smtpMailer.Close()
		outbound = smtpMailer
	} else if cfg.RelayAddr != "" {
		logger.Warn("relay configured without DKIM signing, send endpoint disabled")
	}

	// WebSocket hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub(logger)
	go hub.Run(hubCtx)

	// Sessions and magic links
	var (
		sessions   *auth.SessionManager
		magicLinks *auth.MagicLinkService
	)
	if cfg.SessionSecret != "" {
		sessions, err = auth.NewSessionManager(cfg.SessionSecret, cfg.SessionIssuer, cfg.SessionTTL)
		if err != nil {
			return fmt.Errorf("failed to set up sessions: %w", err)
		}
		magicLinks = auth.NewMagicLinkService(mailboxRepo, tokenRepo, sessions, cfg.MagicLinkBaseURL, 0, logger)
	} else {
		logger.Warn("SESSION_SECRET not set, magic links and WebSocket access disabled")
	}

	// Mail DNS verification
	dnsConfig := services.DefaultMailDNSConfig()
	if cfg.SMTPDomain != "" {
		dnsConfig.SMTPHostname = cfg.SMTPDomain
	}
	dnsVerifier := services.NewMailDNSVerifier(dnsConfig)

	// Inbound SMTP server
	backend := smtp.NewBackend(&smtp.BackendConfig{
		DomainRepo:    domainRepo,
		MailboxRepo:   mailboxRepo,
		MessageRepo:   messageRepo,
		Archive:       archive,
		WSHub:         hub,
		AutoProvision: cfg.AutoProvisioningEnabled,
		Logger:        logger,
	})
	smtpServer := smtp.NewSecureServer(backend, &smtp.ServerConfig{
		Addr:   fmt.Sprintf(":%d", cfg.SMTPPort),
		Domain: cfg.SMTPDomain,
	})

	// HTTP API
	routerCfg := &api.RouterConfig{
		DB:             db,
		Archive:        archive,
		Hub:            hub,
		Logger:         logger,
		MagicLinks:     magicLinks,
		Sessions:       sessions,
		SecLog:         seclog.NewSecurityLogger(),
		Mailer:         outbound,
		SenderAddress:  cfg.SenderAddress,
		DNSVerifier:    dnsVerifier,
		SMTPHost:       dnsConfig.SMTPHostname,
		APIKey:         cfg.APIKey,
		AllowedOrigins: cfg.AllowedOrigins,
		Production:     cfg.AppEnv == "production",
		RateLimit:      cfg.RateLimitRequests,
		RateBurst:      cfg.RateLimitBurst,
	}
	if signer != nil {
		routerCfg.DKIMKeys = signer
	}
	e := api.NewRouter(routerCfg)

	errCh := make(chan error, 2)

	go func() {
		logger.Info("SMTP server listening", slog.Int("port", cfg.SMTPPort))
		if err := smtpServer.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("SMTP server: %w", err)
		}
	}()

	go func() {
		logger.Info("API server listening", slog.Int("port", cfg.APIPort))
		if err := e.Start(fmt.Sprintf(":%d", cfg.APIPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("API server: %w", err)
		}
	}()

	// Wait for a shutdown signal or a server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server failure", slog.Any("error", err))
	}

	// Graceful shutdown: stop accepting, drain, then close the hub so live
	// WebSocket connections get a close frame.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", slog.Any("error", err))
	}
	if err := smtpServer.Close(); err != nil {
		logger.Error("SMTP server shutdown failed", slog.Any("error", err))
	}
	stopHub()

	logger.Info("server stopped")
	return nil
}

// parseLogLevel maps the LOG_LEVEL setting onto slog levels, defaulting to
// info for unknown values.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
