package domain

import (
	"time"
)

// UserProfile represents the authenticated user's profile record.
type UserProfile struct {
	ID        string    `json:"id" validate:"required"`
	Name      *string   `json:"name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty" validate:"omitempty,url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
