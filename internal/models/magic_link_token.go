package models

import (
	"time"
)

// MagicLinkToken is a single-use, time-bounded bearer credential bound to a
// mailbox. The token string is generated from a cryptographically secure
// random source and is unique across all tokens ever issued. The used flag is
// monotonic: once a token has been redeemed it is never valid again.
type MagicLinkToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Token     string     `gorm:"uniqueIndex;not null;size:64" json:"-"`
	MailboxID uint       `gorm:"not null;index" json:"mailbox_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	Used      bool       `gorm:"default:false" json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Mailbox Mailbox `gorm:"foreignKey:MailboxID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for MagicLinkToken
func (MagicLinkToken) TableName() string {
	return "magic_link_tokens"
}

// Redeemable reports whether the token can still be exchanged for a session
// at the given instant.
func (t *MagicLinkToken) Redeemable(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
