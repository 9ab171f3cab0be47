// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/trimlink/trimlink/internal/model"
)

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	OriginalURL string     `json:"original_url"`
	Alias       string     `json:"alias,omitempty"`
	Password    string     `json:"password,omitempty"`
	Description string     `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	DomainID    string     `json:"domain_id"`
	UserID      string     `json:"user_id,omitempty"`
}

// UpdateLinkRequest represents the request body for updating a link.
type UpdateLinkRequest struct {
	OriginalURL   *string    `json:"original_url,omitempty"`
	Alias         *string    `json:"alias,omitempty"`
	Password      *string    `json:"password,omitempty"`
	ClearPassword bool       `json:"clear_password,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Disabled      *bool      `json:"disabled,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ClearExpiry   bool       `json:"clear_expiry,omitempty"`
	DomainID      *string    `json:"domain_id,omitempty"`
}

// BulkDeleteRequest represents the request body for bulk link deletion.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// ProtectedResolveRequest carries the submitted link password.
type ProtectedResolveRequest struct {
	Password string `json:"password"`
}

// ProtectedResolveResponse carries the redirect target on a password
// match.
type ProtectedResolveResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// LinkResponse represents a link in API responses.
// The password hash never leaves the service; only a protected flag
// is exposed.
type LinkResponse struct {
	ID          string     `json:"id"`
	ShortURL    string     `json:"short_url"`
	Alias       string     `json:"alias"`
	OriginalURL string     `json:"original_url"`
	Description string     `json:"description,omitempty"`
	Disabled    bool       `json:"disabled"`
	Protected   bool       `json:"protected"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Status      string     `json:"status"`
	DomainID    string     `json:"domain_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DomainResponse represents a domain in API responses.
type DomainResponse struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToLinkResponse converts a Link model to LinkResponse DTO.
func ToLinkResponse(link *model.Link) *LinkResponse {
	return &LinkResponse{
		ID:          link.ID,
		ShortURL:    link.ShortURL,
		Alias:       link.Alias,
		OriginalURL: link.OriginalURL,
		Description: link.Description,
		Disabled:    link.Disabled,
		Protected:   link.IsProtected(),
		ExpiresAt:   link.ExpiresAt,
		Status:      string(link.Status()),
		DomainID:    link.DomainID,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	}
}

// ToDomainResponse converts a Domain model to DomainResponse DTO.
func ToDomainResponse(domain *model.Domain) *DomainResponse {
	return &DomainResponse{
		ID:       domain.ID,
		Hostname: domain.Hostname,
	}
}
