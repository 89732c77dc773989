package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// QuestType is the closed set of goal kinds a quest template can describe.
type QuestType string

const (
	QuestTypeVisitCount    QuestType = "visit_count"
	QuestTypeVisitCategory QuestType = "visit_category"
	QuestTypeVisitSpecific QuestType = "visit_specific"
)

// Quest is a shared template; user state lives on UserQuest.
type Quest struct {
	ID           string          `gorm:"primaryKey;type:uuid" json:"id"`
	Title        string          `gorm:"not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	QuestType    QuestType       `gorm:"type:varchar(32);not null" json:"quest_type"`
	Requirements json.RawMessage `gorm:"type:jsonb;not null" json:"requirements"`
	RewardAmount int64           `gorm:"not null" json:"reward_amount"`
	ActiveFrom   time.Time       `gorm:"not null" json:"active_from"`
	ActiveUntil  time.Time       `gorm:"not null" json:"active_until"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

// Expired reports whether the quest window [active_from, active_until) has
// closed at the given instant.
func (q *Quest) Expired(now time.Time) bool {
	return !now.Before(q.ActiveUntil)
}

// QuestRequirement is the decoded, typed form of the requirements payload.
// Decoding happens once when the quest is loaded, not ad hoc per event.
type QuestRequirement interface {
	// Target is the progress value at which the quest completes.
	Target() int
}

// VisitCountRequirement: any qualifying check-in counts.
type VisitCountRequirement struct {
	Count int `json:"count"`
}

func (r VisitCountRequirement) Target() int { return r.Count }

// VisitCategoryRequirement: only check-ins at locations of the category count.
type VisitCategoryRequirement struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

func (r VisitCategoryRequirement) Target() int { return r.Count }

// VisitSpecificRequirement: distinct coverage of a required location set.
type VisitSpecificRequirement struct {
	LocationIDs []string `json:"location_ids"`
}

func (r VisitSpecificRequirement) Target() int { return len(r.LocationIDs) }

// DecodeRequirements parses the jsonb payload into the variant matching the
// quest type. Unknown types are the caller's problem to treat as
// non-advancing; malformed payloads are errors.
func (q *Quest) DecodeRequirements() (QuestRequirement, error) {
	switch q.QuestType {
	case QuestTypeVisitCount:
		var r VisitCountRequirement
		if err := json.Unmarshal(q.Requirements, &r); err != nil {
			return nil, fmt.Errorf("quest %s: bad visit_count requirements: %w", q.ID, err)
		}
		if r.Count < 1 {
			r.Count = 1
		}
		return r, nil
	case QuestTypeVisitCategory:
		var r VisitCategoryRequirement
		if err := json.Unmarshal(q.Requirements, &r); err != nil {
			return nil, fmt.Errorf("quest %s: bad visit_category requirements: %w", q.ID, err)
		}
		if r.Count < 1 {
			r.Count = 1
		}
		return r, nil
	case QuestTypeVisitSpecific:
		var r VisitSpecificRequirement
		if err := json.Unmarshal(q.Requirements, &r); err != nil {
			return nil, fmt.Errorf("quest %s: bad visit_specific requirements: %w", q.ID, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("quest %s: unknown quest_type %q", q.ID, q.QuestType)
	}
}

// UserQuestStatus values for the active → completed → claimed machine.
// Expired is persisted by the sweep but also projected at read time.
type UserQuestStatus string

const (
	UserQuestActive    UserQuestStatus = "active"
	UserQuestCompleted UserQuestStatus = "completed"
	UserQuestClaimed   UserQuestStatus = "claimed"
	UserQuestExpired   UserQuestStatus = "expired"
)

// UserQuest binds a user to a quest template with mutable progress.
type UserQuest struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"index:idx_user_quest,unique;not null" json:"user_id"`
	QuestID string `gorm:"index:idx_user_quest,unique;not null" json:"quest_id"`

	Progress    int             `gorm:"default:0" json:"progress"`
	Status      UserQuestStatus `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	ClaimedAt   *time.Time      `json:"claimed_at,omitempty"`

	Quest *Quest `gorm:"foreignKey:QuestID" json:"quest,omitempty"`

	Timestamps
}

// QuestProgressEvent is the idempotency ledger for quest advancement: one
// row per (user quest, check-in), so a redelivered event can never count
// twice. LocationID lets visit_specific quests count distinct coverage.
type QuestProgressEvent struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserQuestID string    `gorm:"index:idx_quest_event,unique;not null" json:"user_quest_id"`
	CheckInID   string    `gorm:"index:idx_quest_event,unique;not null" json:"check_in_id"`
	LocationID  string    `gorm:"index;not null" json:"location_id"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}
