// Package auth implements magic-link issuance/redemption and the session
// credentials minted when a link is redeemed.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/veltamail/veltamail-backend/internal/errors"
	"github.com/veltamail/veltamail-backend/internal/models"
)

// SessionClaims are the JWT claims carried by a session credential. The
// session is bound to a single mailbox and has its own expiry, independent
// of the magic link's one-year window.
type SessionClaims struct {
	MailboxID      uint   `json:"mailbox_id"`
	MailboxAddress string `json:"mailbox_address"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies session credentials.
type SessionManager struct {
	secret []byte
	issuer string
	expiry time.Duration

	now func() time.Time
}

// NewSessionManager creates a SessionManager. The secret must be at least 32
// bytes; expiry is how long a minted session stays valid.
func NewSessionManager(secret string, issuer string, expiry time.Duration) (*SessionManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("%w: session secret must be at least 32 bytes", apperrors.ErrInvalidInput)
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &SessionManager{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// Issue mints a session credential for the mailbox.
func (m *SessionManager) Issue(mailbox *models.Mailbox) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.expiry)

	claims := SessionClaims{
		MailboxID:      mailbox.ID,
		MailboxAddress: mailbox.FullAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   mailbox.FullAddress,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a session credential, returning its claims.
func (m *SessionManager) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrUnauthorized
	}
	return claims, nil
}
