// Package mailer submits DKIM-signed messages to an upstream SMTP relay over
// a single long-lived authenticated connection.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/veltamail/veltamail-backend/internal/dkim"
	apperrors "github.com/veltamail/veltamail-backend/internal/errors"
)

// Message is an outbound message. It has no identity beyond the Send call:
// it is composed, signed, handed to the transport, and forgotten.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Receipt reports a completed submission.
type Receipt struct {
	From   string
	To     string
	SentAt time.Time
}

// Mailer sends messages. Implementations perform no retries: transport
// failures propagate to the caller, which owns the retry policy.
type Mailer interface {
	Send(ctx context.Context, msg *Message) (*Receipt, error)
	Close() error
}

// TransportConfig describes the upstream relay connection.
type TransportConfig struct {
	// Addr is the relay address in host:port form.
	Addr string
	// Host is the relay hostname, used for TLS verification.
	Host string
	// Username and Password authenticate via SASL PLAIN.
	Username string
	Password string
	// ImplicitTLS dials a TLS connection directly (port 465 style) instead
	// of upgrading with STARTTLS.
	ImplicitTLS bool
}

// transport is the subset of the go-smtp client the mailer uses, extracted
// so tests can substitute a fake connection.
type transport interface {
	Noop() error
	Mail(from string, opts *smtp.MailOptions) error
	Rcpt(to string, opts *smtp.RcptOptions) error
	Data() (io.WriteCloser, error)
	Quit() error
}

// SMTPMailer is the production Mailer. The relay connection is a shared
// resource reused across Send calls; a mutex serializes access since the
// underlying client is not safe for concurrent use. The connection is
// authenticated once when established and re-established lazily if the relay
// drops it.
type SMTPMailer struct {
	cfg    TransportConfig
	signer *dkim.Signer
	logger *slog.Logger

	mu   sync.Mutex
	conn transport

	dial func() (transport, error)
	now  func() time.Time
}

// NewSMTPMailer creates a mailer for the given relay. The connection is
// established on first send, not at construction, so startup does not depend
// on relay availability.
func NewSMTPMailer(cfg TransportConfig, signer *dkim.Signer, logger *slog.Logger) *SMTPMailer {
	m := &SMTPMailer{
		cfg:    cfg,
		signer: signer,
		logger: logger,
		now:    time.Now,
	}
	m.dial = m.dialRelay
	return m
}

// dialRelay opens, secures, and authenticates a relay connection.
func (m *SMTPMailer) dialRelay() (transport, error) {
	tlsConfig := &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}

	var (
		client *smtp.Client
		err    error
	)
	if m.cfg.ImplicitTLS {
		client, err = smtp.DialTLS(m.cfg.Addr, tlsConfig)
	} else {
		client, err = smtp.DialStartTLS(m.cfg.Addr, tlsConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to relay %s: %v", apperrors.ErrTransport, m.cfg.Addr, err)
	}

	if m.cfg.Username != "" {
		auth := sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: relay authentication failed: %v", apperrors.ErrTransport, err)
		}
	}

	if m.logger != nil {
		m.logger.Info("connected to mail relay", slog.String("addr", m.cfg.Addr))
	}
	return client, nil
}

// acquire returns a live connection, reusing the existing one when the relay
// still answers NOOP. Caller must hold m.mu.
func (m *SMTPMailer) acquire() (transport, error) {
	if m.conn != nil {
		if err := m.conn.Noop(); err == nil {
			return m.conn, nil
		}
		if m.logger != nil {
			m.logger.Warn("relay connection lost, reconnecting")
		}
		m.conn = nil
	}

	conn, err := m.dial()
	if err != nil {
		return nil, err
	}
	m.conn = conn
	return conn, nil
}

// Send composes the message, signs it, and submits it to the relay. The
// DKIM signature covers the HTML body, falling back to the text body, then
// the empty string, matching what composeBody emits as the primary part.
// Errors wrap ErrTransport and are never retried here.
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.From == "" || msg.To == "" {
		return nil, fmt.Errorf("%w: from and to are required", apperrors.ErrInvalidInput)
	}

	date := m.now().UTC().Format(dateFormat)

	signingBody := msg.HTML
	if signingBody == "" {
		signingBody = msg.Text
	}
	signature, err := m.signer.Sign(dkim.Headers{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Date:    date,
	}, signingBody)
	if err != nil {
		return nil, err
	}

	raw, err := composeMessage(msg, date, signature)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conn, err := m.acquire()
	if err != nil {
		return nil, err
	}

	if err := m.submit(conn, msg.From, msg.To, raw); err != nil {
		// Drop the connection so the next send re-dials.
		m.conn = nil
		return nil, err
	}

	if m.logger != nil {
		m.logger.Info("outbound message sent",
			slog.String("from", msg.From),
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject))
	}

	return &Receipt{From: msg.From, To: msg.To, SentAt: m.now()}, nil
}

// submit runs one MAIL/RCPT/DATA transaction.
func (m *SMTPMailer) submit(conn transport, from, to string, raw []byte) error {
	if err := conn.Mail(from, nil); err != nil {
		return fmt.Errorf("%w: MAIL FROM rejected: %v", apperrors.ErrTransport, err)
	}
	if err := conn.Rcpt(to, nil); err != nil {
		return fmt.Errorf("%w: recipient %s rejected: %v", apperrors.ErrTransport, to, err)
	}
	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("%w: DATA rejected: %v", apperrors.ErrTransport, err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return fmt.Errorf("%w: writing message body: %v", apperrors.ErrTransport, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: message rejected: %v", apperrors.ErrTransport, err)
	}
	return nil
}

// Close terminates the relay connection if one is open.
func (m *SMTPMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	err := m.conn.Quit()
	m.conn = nil
	return err
}
