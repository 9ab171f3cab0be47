// Package model defines domain entities for the application.
package model

import "time"

// LinkStatus represents the computed status of a link.
type LinkStatus string

const (
	LinkStatusActive    LinkStatus = "active"
	LinkStatusExpired   LinkStatus = "expired"
	LinkStatusDisabled  LinkStatus = "disabled"
	LinkStatusProtected LinkStatus = "protected"
)

// Link represents a shortened URL entity.
// ShortURL (domain hostname + "/" + alias) is globally unique and is
// the lookup key for resolution.
type Link struct {
	ID          string     `json:"id"`
	ShortURL    string     `json:"short_url"`
	Alias       string     `json:"alias"`
	OriginalURL string     `json:"original_url"`
	Description string     `json:"description,omitempty"`
	Disabled    bool       `json:"disabled"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`

	// PasswordHash is the argon2id hash of the link password.
	// Empty means the link is public. Serialized for the cache only;
	// API responses go through handler DTOs and never include it.
	PasswordHash string `json:"password_hash,omitempty"`

	// UserID is empty for anonymously created links.
	UserID   string `json:"user_id,omitempty"`
	DomainID string `json:"domain_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status computes the current status of the link.
func (l *Link) Status() LinkStatus {
	if l.Disabled {
		return LinkStatusDisabled
	}
	if l.IsExpired() {
		return LinkStatusExpired
	}
	if l.IsProtected() {
		return LinkStatusProtected
	}
	return LinkStatusActive
}

// IsExpired returns true if the link has passed its expiry date.
// Links without an expiry date never expire.
func (l *Link) IsExpired() bool {
	return l.ExpiresAt != nil && time.Now().After(*l.ExpiresAt)
}

// IsProtected returns true if the link requires a password.
func (l *Link) IsProtected() bool {
	return l.PasswordHash != ""
}
