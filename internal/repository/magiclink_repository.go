package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veltamail/veltamail-backend/internal/models"
	"gorm.io/gorm"
)

// MagicLinkRepository defines the interface for magic-link token data access.
// Tokens are created by issuance and mutated only by redemption (the
// monotonic used-flag flip).
type MagicLinkRepository interface {
	Create(ctx context.Context, token *models.MagicLinkToken) error
	GetByToken(ctx context.Context, token string) (*models.MagicLinkToken, error)
	FindRedeemable(ctx context.Context, mailboxID uint, now time.Time) (*models.MagicLinkToken, error)
	Redeem(ctx context.Context, token string, now time.Time) error
	DeleteExpired(ctx context.Context, mailboxID uint, now time.Time) (int64, error)
}

// magicLinkRepository implements MagicLinkRepository using GORM
type magicLinkRepository struct {
	db *gorm.DB
}

// NewMagicLinkRepository creates a new MagicLinkRepository instance
func NewMagicLinkRepository(db *gorm.DB) MagicLinkRepository {
	return &magicLinkRepository{db: db}
}

// Create persists a newly issued token
func (r *magicLinkRepository) Create(ctx context.Context, token *models.MagicLinkToken) error {
	result := r.db.WithContext(ctx).Create(token)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("token already exists: %w", ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create magic link token: %w", result.Error)
	}
	return nil
}

// GetByToken retrieves a token by its opaque token string
func (r *magicLinkRepository) GetByToken(ctx context.Context, token string) (*models.MagicLinkToken, error) {
	var record models.MagicLinkToken
	result := r.db.WithContext(ctx).Where("token = ?", token).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get magic link token: %w", result.Error)
	}
	return &record, nil
}

// FindRedeemable returns an outstanding unused, unexpired token for the
// mailbox, or ErrNotFound if none exists. Issuance uses this to return the
// existing token instead of minting a duplicate.
func (r *magicLinkRepository) FindRedeemable(ctx context.Context, mailboxID uint, now time.Time) (*models.MagicLinkToken, error) {
	var record models.MagicLinkToken
	result := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND used = ? AND expires_at > ?", mailboxID, false, now).
		Order("expires_at DESC").
		First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find redeemable token: %w", result.Error)
	}
	return &record, nil
}

// Redeem flips the used flag with a single conditional UPDATE. The WHERE
// clause on used = false makes the flip atomic: of two concurrent redemptions
// for the same token exactly one sees RowsAffected == 1. A zero row count
// means the token was already redeemed.
func (r *magicLinkRepository) Redeem(ctx context.Context, token string, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.MagicLinkToken{}).
		Where("token = ? AND used = ?", token, false).
		Updates(map[string]interface{}{"used": true, "used_at": now})
	if result.Error != nil {
		return fmt.Errorf("failed to redeem token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyRedeemed
	}
	return nil
}

// DeleteExpired lazily prunes expired tokens for a mailbox. Called on
// issuance when a fresh token replaces an expired one; there is no periodic
// sweep.
func (r *magicLinkRepository) DeleteExpired(ctx context.Context, mailboxID uint, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND expires_at <= ? AND used = ?", mailboxID, now, false).
		Delete(&models.MagicLinkToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
