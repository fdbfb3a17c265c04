// Package smtp implements the inbound mail receiver. Accepted messages are
// parsed, archived, stored, and pushed to live WebSocket subscribers.
package smtp

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/emersion/go-smtp"

	"github.com/veltamail/veltamail-backend/internal/repository"
	"github.com/veltamail/veltamail-backend/internal/storage"
	"github.com/veltamail/veltamail-backend/internal/websocket"
)

// Security limits
const (
	DefaultMaxMessageSize = 25 * 1024 * 1024 // 25 MB
	DefaultMaxRecipients  = 100
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultMaxLineLength  = 2000
)

// Backend implements the go-smtp Backend interface
type Backend struct {
	domainRepo    repository.DomainRepository
	mailboxRepo   repository.MailboxRepository
	messageRepo   repository.MessageRepository
	archive       storage.RawArchive
	wsHub         *websocket.Hub
	autoProvision bool
	logger        *slog.Logger
}

// BackendConfig holds configuration for the SMTP backend
type BackendConfig struct {
	DomainRepo    repository.DomainRepository
	MailboxRepo   repository.MailboxRepository
	MessageRepo   repository.MessageRepository
	Archive       storage.RawArchive
	WSHub         *websocket.Hub
	AutoProvision bool
	Logger        *slog.Logger
}

// NewBackend creates a new SMTP backend
func NewBackend(cfg *BackendConfig) *Backend {
	return &Backend{
		domainRepo:    cfg.DomainRepo,
		mailboxRepo:   cfg.MailboxRepo,
		messageRepo:   cfg.MessageRepo,
		archive:       cfg.Archive,
		wsHub:         cfg.WSHub,
		autoProvision: cfg.AutoProvision,
		logger:        cfg.Logger,
	}
}

// NewSession creates a new SMTP session
func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	if b.logger != nil {
		b.logger.Info("new SMTP connection", slog.String("remote_addr", c.Conn().RemoteAddr().String()))
	}
	return NewSession(b), nil
}

// ServerConfig holds security configuration for the SMTP server
type ServerConfig struct {
	Addr           string
	Domain         string
	MaxMessageSize int64
	MaxRecipients  int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowInsecure  bool
	TLSConfig      *tls.Config
}

// NewSecureServer creates a new SMTP server with security settings
func NewSecureServer(backend *Backend, cfg *ServerConfig) *smtp.Server {
	s := smtp.NewServer(backend)

	s.Addr = cfg.Addr
	s.Domain = cfg.Domain

	if cfg.MaxMessageSize > 0 {
		s.MaxMessageBytes = cfg.MaxMessageSize
	} else {
		s.MaxMessageBytes = DefaultMaxMessageSize
	}

	if cfg.MaxRecipients > 0 {
		s.MaxRecipients = cfg.MaxRecipients
	} else {
		s.MaxRecipients = DefaultMaxRecipients
	}

	if cfg.ReadTimeout > 0 {
		s.ReadTimeout = cfg.ReadTimeout
	} else {
		s.ReadTimeout = DefaultReadTimeout
	}

	if cfg.WriteTimeout > 0 {
		s.WriteTimeout = cfg.WriteTimeout
	} else {
		s.WriteTimeout = DefaultWriteTimeout
	}

	s.AllowInsecureAuth = cfg.AllowInsecure

	if cfg.TLSConfig != nil {
		s.TLSConfig = cfg.TLSConfig
	}

	// Cap line length to prevent buffer abuse
	s.MaxLineLength = DefaultMaxLineLength

	return s
}
