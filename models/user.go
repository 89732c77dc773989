package models

import (
	"strings"
)

// User is the wallet-bound player record. One row per normalized wallet
// address; created on first successful wallet association.
type User struct {
	ID            string  `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string  `gorm:"uniqueIndex;not null" json:"wallet_address"`
	Username      *string `gorm:"uniqueIndex" json:"username,omitempty"`

	// TotalPoints is monotonically non-decreasing; mutated only by the
	// check-in and quest-claim credit paths (atomic SQL increment).
	TotalPoints int64 `json:"total_points" gorm:"default:0"`
	Level       int   `json:"level" gorm:"default:1"`

	Timestamps
}

// NormalizeWallet lower-cases a wallet address so lookups and the unique
// index agree regardless of how the client checksums it.
func NormalizeWallet(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
