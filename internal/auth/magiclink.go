package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	apperrors "github.com/veltamail/veltamail-backend/internal/errors"
	"github.com/veltamail/veltamail-backend/internal/models"
	"github.com/veltamail/veltamail-backend/internal/repository"
)

const (
	// tokenBytes is the entropy of a magic-link token. Hex encoding doubles
	// it to 64 characters on the wire.
	tokenBytes = 32

	// DefaultTokenTTL keeps a link redeemable for a year, so a link mailed
	// today still works months later.
	DefaultTokenTTL = 365 * 24 * time.Hour
)

// IssuedLink is the result of issuing a magic link for a mailbox.
type IssuedLink struct {
	Token     string    `json:"token"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session is the credential handed out when a magic link is redeemed.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Mailbox   *models.Mailbox `json:"mailbox"`
}

// MagicLinkService issues and redeems single-use login tokens for mailboxes.
type MagicLinkService struct {
	mailboxes repository.MailboxRepository
	tokens    repository.MagicLinkRepository
	sessions  *SessionManager
	logger    *slog.Logger

	baseURL  string
	tokenTTL time.Duration

	now func() time.Time
}

// NewMagicLinkService creates a MagicLinkService. baseURL is where issued
// links point (the token is appended as a query parameter). A zero tokenTTL
// falls back to DefaultTokenTTL.
func NewMagicLinkService(
	mailboxes repository.MailboxRepository,
	tokens repository.MagicLinkRepository,
	sessions *SessionManager,
	baseURL string,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *MagicLinkService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MagicLinkService{
		mailboxes: mailboxes,
		tokens:    tokens,
		sessions:  sessions,
		logger:    logger,
		baseURL:   baseURL,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// Issue returns a redeemable magic link for the mailbox address. Issuance is
// idempotent: while an unused, unexpired token exists for the mailbox, that
// token is returned again instead of minting a new one. Only active mailboxes
// can receive links.
func (s *MagicLinkService) Issue(ctx context.Context, address string) (*IssuedLink, error) {
	mailbox, err := s.mailboxes.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrMailboxNotFound, address)
		}
		return nil, fmt.Errorf("failed to look up mailbox: %w", err)
	}
	if !mailbox.IsActive {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrMailboxInactive, address)
	}

	now := s.now()

	// Reuse the outstanding token if one is still redeemable.
	existing, err := s.tokens.FindRedeemable(ctx, mailbox.ID, now)
	if err == nil {
		return s.issuedLink(existing), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check outstanding tokens: %w", err)
	}

	// Expired leftovers are pruned here rather than by a background sweep.
	if pruned, err := s.tokens.DeleteExpired(ctx, mailbox.ID, now); err != nil {
		s.logger.Warn("failed to prune expired tokens",
			slog.Uint64("mailbox_id", uint64(mailbox.ID)),
			slog.Any("error", err))
	} else if pruned > 0 {
		s.logger.Debug("pruned expired tokens",
			slog.Uint64("mailbox_id", uint64(mailbox.ID)),
			slog.Int64("count", pruned))
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	record := &models.MagicLinkToken{
		Token:     token,
		MailboxID: mailbox.ID,
		ExpiresAt: now.Add(s.tokenTTL),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	s.logger.Info("magic link issued",
		slog.Uint64("mailbox_id", uint64(mailbox.ID)),
		slog.Time("expires_at", record.ExpiresAt))

	return s.issuedLink(record), nil
}

// Redeem exchanges a magic-link token for a session credential. A token
// redeems at most once: concurrent redemptions race on an atomic flip of the
// used flag and exactly one wins.
func (s *MagicLinkService) Redeem(ctx context.Context, token string) (*Session, error) {
	record, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	now := s.now()
	if !now.Before(record.ExpiresAt) {
		return nil, apperrors.ErrExpiredToken
	}
	if record.Used {
		return nil, apperrors.ErrAlreadyUsedToken
	}

	mailbox, err := s.mailboxes.GetByID(ctx, record.MailboxID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up mailbox: %w", err)
	}
	if !mailbox.IsActive {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrMailboxInactive, mailbox.FullAddress)
	}

	if err := s.tokens.Redeem(ctx, token, now); err != nil {
		if errors.Is(err, repository.ErrAlreadyRedeemed) {
			// Lost the race against a concurrent redemption.
			return nil, apperrors.ErrAlreadyUsedToken
		}
		return nil, fmt.Errorf("failed to redeem token: %w", err)
	}

	sessionToken, expiresAt, err := s.sessions.Issue(mailbox)
	if err != nil {
		return nil, fmt.Errorf("failed to mint session: %w", err)
	}

	s.logger.Info("magic link redeemed",
		slog.Uint64("mailbox_id", uint64(mailbox.ID)),
		slog.String("mailbox", mailbox.FullAddress))

	return &Session{
		Token:     sessionToken,
		ExpiresAt: expiresAt,
		Mailbox:   mailbox,
	}, nil
}

func (s *MagicLinkService) issuedLink(record *models.MagicLinkToken) *IssuedLink {
	return &IssuedLink{
		Token:     record.Token,
		Link:      s.buildLink(record.Token),
		ExpiresAt: record.ExpiresAt,
	}
}

func (s *MagicLinkService) buildLink(token string) string {
	if s.baseURL == "" {
		return ""
	}
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// generateToken returns a hex-encoded 256-bit random token.
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
