package models

import (
	"time"
)

// Domain is a mail domain the platform accepts inbound mail for. Inbound
// RCPT validation and mailbox provisioning both resolve against this table.
type Domain struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"uniqueIndex;not null;size:255" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// Mail DNS state recorded by the verify-dns endpoint. MXVerified holds
	// the outcome of the most recent check; LastDNSCheckAt stays nil until
	// the first check runs.
	MXVerified     bool       `gorm:"default:false" json:"mx_verified"`
	LastDNSCheckAt *time.Time `json:"last_dns_check_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Deleting a domain cascades to its mailboxes and, through them, to
	// their messages.
	Mailboxes []Mailbox `gorm:"foreignKey:DomainID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Domain
func (Domain) TableName() string {
	return "domains"
}
