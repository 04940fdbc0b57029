package domain

import (
	"time"
)

// Bookmark marks a property as saved by a user. The backend enforces
// uniqueness on (user_id, property_id); the toggle operation relies on that
// constraint to stay well-defined under concurrent calls.
type Bookmark struct {
	ID         string    `json:"id" validate:"required"`
	UserID     string    `json:"user_id" validate:"required"`
	PropertyID string    `json:"property_id" validate:"required"`
	CreatedAt  time.Time `json:"created_at"`
}
