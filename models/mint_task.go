package models

import "time"

// MintTaskStatus is the lifecycle of an outbox entry.
type MintTaskStatus string

const (
	MintTaskPending MintTaskStatus = "pending"
	MintTaskDone    MintTaskStatus = "done"
	MintTaskFailed  MintTaskStatus = "failed"
)

// MintTask is the outbox row enqueued inside the check-in transaction and
// drained by the mint worker. The on-chain mint is at-least-once and sits
// outside the check-in's atomicity boundary: a relayer failure never rolls
// back the committed check-in, it just leaves the task pending for retry.
type MintTask struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	CheckInID     string `gorm:"uniqueIndex;not null" json:"check_in_id"`
	UserID        string `gorm:"index;not null" json:"user_id"`
	WalletAddress string `gorm:"not null" json:"wallet_address"`
	LocationID    string `gorm:"not null" json:"location_id"`
	RarityScore   int    `gorm:"not null" json:"rarity_score"`

	Status      MintTaskStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Attempts    int            `gorm:"default:0" json:"attempts"`
	LastError   *string        `gorm:"type:text" json:"last_error,omitempty"`
	MetadataURL *string        `json:"metadata_url,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
