package models

import "time"

// SavedView is a named contact filter a user (or the agent) saved for reuse
type SavedView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Filters   string    `json:"filters"` // JSON
	Sort      string    `json:"sort,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
