package domain

import (
	"time"
)

// Review represents a rating a user left on a property.
type Review struct {
	ID         string    `json:"id" validate:"required"`
	PropertyID string    `json:"property_id" validate:"required"`
	UserID     string    `json:"user_id" validate:"required"`
	Rating     int       `json:"rating" validate:"gte=1,lte=5"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
