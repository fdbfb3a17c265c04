// Package api wires the HTTP surface: routing, middleware, and handler
// construction.
package api

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/veltamail/veltamail-backend/internal/api/handlers"
	"github.com/veltamail/veltamail-backend/internal/api/middleware"
	"github.com/veltamail/veltamail-backend/internal/auth"
	"github.com/veltamail/veltamail-backend/internal/logger"
	"github.com/veltamail/veltamail-backend/internal/mailer"
	"github.com/veltamail/veltamail-backend/internal/repository"
	"github.com/veltamail/veltamail-backend/internal/services"
	"github.com/veltamail/veltamail-backend/internal/storage"
	"github.com/veltamail/veltamail-backend/internal/websocket"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB      *gorm.DB
	Archive storage.RawArchive
	Hub     *websocket.Hub
	Logger  *slog.Logger

	// Auth services. MagicLinks and Sessions must be set together; when nil
	// the auth and WebSocket routes are not mounted.
	MagicLinks *auth.MagicLinkService
	Sessions   *auth.SessionManager
	SecLog     *logger.SecurityLogger

	// Outbound mail. Nil disables the send endpoint.
	Mailer        mailer.Mailer
	SenderAddress string

	// Mail DNS verification for domains. Nil disables verify-dns.
	DNSVerifier services.MailDNSVerifier
	DKIMKeys    services.DKIMKeyProvider
	SMTPHost    string

	// Security configuration
	APIKey         string // API key for authentication (empty = disabled)
	AllowedOrigins string // Comma-separated allowed CORS origins
	Production     bool
	RateLimit      float64 // Requests per second
	RateBurst      int     // Burst size for rate limiter
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Security middleware, outermost first
	e.Use(middleware.Recover())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.Production))

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 10
	}
	rateBurst := cfg.RateBurst
	if rateBurst <= 0 {
		rateBurst = 20
	}
	e.Use(middleware.RateLimiter(rateLimit, rateBurst, cfg.Logger))

	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	// Initialize repositories
	domainRepo := repository.NewDomainRepository(cfg.DB)
	mailboxRepo := repository.NewMailboxRepository(cfg.DB)
	messageRepo := repository.NewMessageRepository(cfg.DB)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Hub)
	domainHandler := handlers.NewDomainHandlerWithDNS(domainRepo, cfg.DNSVerifier, cfg.DKIMKeys, cfg.SMTPHost)
	mailboxHandler := handlers.NewMailboxHandler(mailboxRepo, domainRepo)
	messageHandler := handlers.NewMessageHandler(messageRepo, mailboxRepo, cfg.Archive)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// WebSocket endpoint. Authenticated by session token, not API key: the
	// upgrade request comes from end-user browsers.
	if cfg.Hub != nil && cfg.Sessions != nil {
		upgrader := websocket.NewSecureUpgrader(splitOrigins(cfg.AllowedOrigins), cfg.Logger)
		wsHandler := handlers.NewWSHandler(cfg.Hub, cfg.Sessions, upgrader, cfg.Logger)
		e.GET("/ws", wsHandler.Connect)
	}

	// API routes
	api := e.Group("/api")
	api.Use(middleware.APIKeyAuth(cfg.APIKey, cfg.Logger))

	// Magic-link routes
	if cfg.MagicLinks != nil {
		magicLinkHandler := handlers.NewMagicLinkHandler(cfg.MagicLinks, cfg.SecLog)
		authGroup := api.Group("/auth")
		authGroup.POST("/magic-links", magicLinkHandler.Issue)
		authGroup.POST("/magic-links/redeem", magicLinkHandler.Redeem)
	}

	// Outbound mail routes
	if cfg.Mailer != nil {
		sendHandler := handlers.NewSendHandler(cfg.Mailer, cfg.SenderAddress)
		api.POST("/mail/send", sendHandler.Send)
	}

	// Domain routes
	domains := api.Group("/domains")
	domains.POST("", domainHandler.Create)
	domains.GET("", domainHandler.List)
	domains.GET("/:id", domainHandler.Get)
	domains.PUT("/:id", domainHandler.Update)
	domains.DELETE("/:id", domainHandler.Delete)
	domains.POST("/:id/verify-dns", domainHandler.VerifyDNS)

	// Mailbox routes
	mailboxes := api.Group("/mailboxes")
	mailboxes.POST("", mailboxHandler.Create)
	mailboxes.POST("/random", mailboxHandler.CreateRandom)
	mailboxes.GET("", mailboxHandler.List)
	mailboxes.GET("/:id", mailboxHandler.Get)
	mailboxes.PATCH("/:id/active", mailboxHandler.SetActive)
	mailboxes.DELETE("/:id", mailboxHandler.Delete)

	// Message routes (nested under mailboxes)
	mailboxes.GET("/:mailbox_id/messages", messageHandler.List)
	mailboxes.GET("/:mailbox_id/messages/unread-count", messageHandler.UnreadCount)

	// Message routes (standalone)
	messages := api.Group("/messages")
	messages.GET("/:id", messageHandler.Get)
	messages.GET("/:id/raw", messageHandler.GetRaw)
	messages.PATCH("/:id/read", messageHandler.MarkAsRead)
	messages.DELETE("/:id", messageHandler.Delete)

	return e
}

func splitOrigins(origins string) []string {
	if origins == "" {
		return nil
	}
	return strings.Split(origins, ",")
}
