package model

import "time"

// Domain is a hostname under which aliases are minted.
// Read-mostly; cached by id and as a full list.
type Domain struct {
	ID        string    `json:"id"`
	Hostname  string    `json:"hostname"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
