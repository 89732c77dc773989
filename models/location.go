package models

import "time"

// Location is a point of interest from the externally managed catalog.
// The core only reads it; rows are seeded through the admin endpoint.
type Location struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string  `gorm:"not null" json:"name"`
	Slug        string  `gorm:"uniqueIndex;not null" json:"slug"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	Address     *string `json:"address,omitempty"`
	Latitude    float64 `gorm:"not null" json:"latitude"`
	Longitude   float64 `gorm:"not null" json:"longitude"`
	Category    string  `gorm:"index;not null" json:"category"`

	// BaseRarity is a 1-4 catalog value; the rarity calculator turns it
	// into a 0-100 score at check-in time.
	BaseRarity int `gorm:"not null;default:1;check:base_rarity BETWEEN 1 AND 4" json:"base_rarity"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// LocationStats is a denormalized per-location check-in counter,
// maintained inside the check-in transaction.
type LocationStats struct {
	LocationID    string     `gorm:"primaryKey;type:uuid" json:"location_id"`
	TotalCheckIns int64      `gorm:"default:0" json:"total_check_ins"`
	LastCheckIn   *time.Time `json:"last_check_in,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}
