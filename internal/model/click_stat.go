package model

import "time"

// ClickStat represents one successful resolution of a link.
// Append-only; never mutated after insert. Rows are removed only by
// the cascade when their link is deleted.
type ClickStat struct {
	ID       string `json:"id"` // ULID (time-sortable)
	LinkID   string `json:"link_id"`
	Referrer string `json:"referrer,omitempty"`

	// Country is derived from the client IP (ISO 3166-1 alpha-2).
	Country string `json:"country,omitempty"`

	// OS and Browser are derived from the User-Agent header.
	OS      string `json:"os,omitempty"`
	Browser string `json:"browser,omitempty"`

	ClickedAt time.Time `json:"clicked_at"`
	CreatedAt time.Time `json:"created_at"`
}
