package domain

import (
	"time"
)

// Category classifies a property listing.
type Category string

const (
	CategoryHouse     Category = "house"
	CategoryApartment Category = "apartment"
	CategoryVilla     Category = "villa"
	CategoryLand      Category = "land"
)

// Valid reports whether the category is one of the recognized values.
func (c Category) Valid() bool {
	switch c {
	case CategoryHouse, CategoryApartment, CategoryVilla, CategoryLand:
		return true
	}
	return false
}

// Status describes the market state of a property.
type Status string

const (
	StatusAvailable Status = "available"
	StatusSold      Status = "sold"
	StatusRented    Status = "rented"
)

// Features holds the named capability flags a listing can advertise.
type Features struct {
	Pool      bool `json:"pool,omitempty"`
	Garden    bool `json:"garden,omitempty"`
	Parking   int  `json:"parking,omitempty"`
	Security  bool `json:"security,omitempty"`
	Gym       bool `json:"gym,omitempty"`
	Concierge bool `json:"concierge,omitempty"`
	Basement  bool `json:"basement,omitempty"`
	Patio     bool `json:"patio,omitempty"`
}

// Property represents a single listing. The backend owns the authoritative
// copy; every Property value held by this client is a cache entry.
//
// AverageRating is derived from the listing's reviews and is nil when the
// property has none. It is never stored server-side.
type Property struct {
	ID            string     `json:"id" validate:"required"`
	Title         string     `json:"title" validate:"required"`
	Description   *string    `json:"description,omitempty"`
	Price         float64    `json:"price" validate:"gte=0"`
	Location      string     `json:"location" validate:"required"`
	Address       string     `json:"address"`
	Bedrooms      *int       `json:"bedrooms,omitempty" validate:"omitempty,gte=0"`
	Bathrooms     *int       `json:"bathrooms,omitempty" validate:"omitempty,gte=0"`
	Area          *float64   `json:"area,omitempty" validate:"omitempty,gte=0"`
	Category      Category   `json:"category" validate:"required,oneof=house apartment villa land"`
	Status        Status     `json:"status" validate:"required,oneof=available sold rented"`
	Features      *Features  `json:"features,omitempty"`
	Images        []string   `json:"images"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	AverageRating *float64   `json:"average_rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Reviews       []Review   `json:"reviews,omitempty"`
}
