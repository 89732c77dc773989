package models

import "time"

// CheckIn records a verified visit. Immutable once created, except for the
// NFT fields the mint worker reconciles after the on-chain mint confirms.
type CheckIn struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string    `gorm:"index;not null" json:"user_id"`
	LocationID string    `gorm:"index;not null" json:"location_id"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`

	RarityScore int `gorm:"not null" json:"rarity_score"`

	// IdempotencyKey dedupes retried submissions: a retry with the same key
	// hits the unique index instead of creating a second row.
	IdempotencyKey string `gorm:"uniqueIndex;not null" json:"-"`

	NFTTokenID      *string `json:"nft_token_id,omitempty"`
	TransactionHash *string `json:"transaction_hash,omitempty"`

	Location *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
