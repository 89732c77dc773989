package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"streetpass-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuestService struct {
	DB    *gorm.DB
	users *UserService
}

func NewQuestService(db *gorm.DB, users *UserService) *QuestService {
	return &QuestService{DB: db, users: users}
}

// CheckInEvent is what the check-in transaction hands the quest engine.
type CheckInEvent struct {
	UserID     string
	CheckInID  string
	LocationID string
	Category   string
	At         time.Time
}

// ApplyCheckIn advances every active, in-window quest of the user that the
// event qualifies for. It runs inside the caller's transaction so the
// check-in's point award and its quest advancements commit as one unit.
//
// Application is idempotent per (user quest, check-in): the progress-event
// ledger's unique index swallows redelivery, so an at-least-once caller can
// replay the same event safely.
func (s *QuestService) ApplyCheckIn(tx *gorm.DB, ev CheckInEvent) error {
	var userQuests []models.UserQuest
	if err := tx.Preload("Quest").
		Where("user_id = ? AND status = ?", ev.UserID, models.UserQuestActive).
		Find(&userQuests).Error; err != nil {
		return fmt.Errorf("failed to load active quests: %w", err)
	}

	for i := range userQuests {
		uq := &userQuests[i]
		if uq.Quest == nil {
			log.Printf("⚠️  [QUEST] user quest %s references missing quest %s — skipping", uq.ID, uq.QuestID)
			continue
		}
		if ev.At.Before(uq.Quest.ActiveFrom) || uq.Quest.Expired(ev.At) {
			continue
		}

		req, err := uq.Quest.DecodeRequirements()
		if err != nil {
			// Data-integrity problem in the catalog; defensively non-advancing.
			log.Printf("⚠️  [QUEST] %v — treating as non-advancing", err)
			continue
		}

		if !qualifies(req, ev) {
			continue
		}

		if err := s.advance(tx, uq, req, ev); err != nil {
			return err
		}
	}
	return nil
}

func qualifies(req models.QuestRequirement, ev CheckInEvent) bool {
	switch r := req.(type) {
	case models.VisitCountRequirement:
		return true
	case models.VisitCategoryRequirement:
		return strings.EqualFold(r.Category, ev.Category)
	case models.VisitSpecificRequirement:
		for _, id := range r.LocationIDs {
			if id == ev.LocationID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// advance records the progress event and moves the counter. The event row
// both dedupes redelivery and, for visit_specific, backs the distinct
// coverage count.
func (s *QuestService) advance(tx *gorm.DB, uq *models.UserQuest, req models.QuestRequirement, ev CheckInEvent) error {
	event := models.QuestProgressEvent{
		ID:          uuid.NewString(),
		UserQuestID: uq.ID,
		CheckInID:   ev.CheckInID,
		LocationID:  ev.LocationID,
	}
	if err := tx.Create(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil // event already counted
		}
		return fmt.Errorf("failed to record quest progress event: %w", err)
	}

	// Progress always derives from the ledger, never from the loaded
	// binding: a snapshot staled by a concurrent advancement would
	// undercount a progress+1.
	var progress int
	if _, specific := req.(models.VisitSpecificRequirement); specific {
		// Distinct required locations covered so far; repeat visits to the
		// same location don't move the counter.
		var covered int64
		if err := tx.Model(&models.QuestProgressEvent{}).
			Where("user_quest_id = ?", uq.ID).
			Distinct("location_id").
			Count(&covered).Error; err != nil {
			return fmt.Errorf("failed to count covered locations: %w", err)
		}
		progress = int(covered)
	} else {
		var events int64
		if err := tx.Model(&models.QuestProgressEvent{}).
			Where("user_quest_id = ?", uq.ID).
			Count(&events).Error; err != nil {
			return fmt.Errorf("failed to count progress events: %w", err)
		}
		progress = int(events)
	}

	updates := map[string]interface{}{"progress": progress}
	if progress >= req.Target() {
		updates["status"] = models.UserQuestCompleted
		updates["completed_at"] = ev.At
	}

	res := tx.Model(&models.UserQuest{}).
		Where("id = ? AND status = ?", uq.ID, models.UserQuestActive).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update quest progress: %w", res.Error)
	}
	if res.RowsAffected > 0 && progress >= req.Target() {
		log.Printf("🏆 [QUEST] %s completed quest %s (%s)", uq.UserID, uq.QuestID, uq.Quest.Title)
	}
	return nil
}

// ClaimReward pays out a completed quest. Allowed only from completed and
// only before expiry; a double claim is rejected without a second payment.
func (s *QuestService) ClaimReward(userID, userQuestID string, now time.Time) (*models.UserQuest, error) {
	var claimed models.UserQuest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var uq models.UserQuest
		if err := tx.Preload("Quest").
			Where("id = ? AND user_id = ?", userQuestID, userID).
			First(&uq).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuestNotFound
			}
			return err
		}
		if uq.Quest == nil {
			return fmt.Errorf("user quest %s references missing quest %s", uq.ID, uq.QuestID)
		}

		switch uq.Status {
		case models.UserQuestClaimed:
			return ErrQuestAlreadyClaimed
		case models.UserQuestExpired:
			return ErrQuestExpired
		case models.UserQuestCompleted:
			// fall through
		default:
			return ErrQuestNotCompleted
		}
		if uq.Quest.Expired(now) {
			return ErrQuestExpired
		}

		// Conditional transition: two racing claims see exactly one row
		// affected, so the reward is paid exactly once.
		res := tx.Model(&models.UserQuest{}).
			Where("id = ? AND status = ?", uq.ID, models.UserQuestCompleted).
			Updates(map[string]interface{}{
				"status":     models.UserQuestClaimed,
				"claimed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrQuestAlreadyClaimed
		}

		if _, err := s.users.CreditPoints(tx, userID, uq.Quest.RewardAmount,
			fmt.Sprintf("quest_%s_reward", uq.QuestID)); err != nil {
			return err
		}

		uq.Status = models.UserQuestClaimed
		uq.ClaimedAt = &now
		claimed = uq
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// ListUserQuests returns the user's quest bindings newest-first, with the
// expired status projected at read time for overdue rows the sweep has not
// persisted yet.
func (s *QuestService) ListUserQuests(userID string, now time.Time) ([]models.UserQuest, error) {
	var userQuests []models.UserQuest
	if err := s.DB.Preload("Quest").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&userQuests).Error; err != nil {
		return nil, err
	}

	for i := range userQuests {
		uq := &userQuests[i]
		if uq.Quest == nil {
			continue
		}
		if (uq.Status == models.UserQuestActive || uq.Status == models.UserQuestCompleted) &&
			uq.Quest.Expired(now) {
			uq.Status = models.UserQuestExpired
		}
	}
	return userQuests, nil
}

// AssignQuest binds a quest template to a user with zero progress.
// Idempotent per (user, quest).
func (s *QuestService) AssignQuest(userID, questID string) (*models.UserQuest, error) {
	var quest models.Quest
	if err := s.DB.Where("id = ?", questID).First(&quest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, err
	}

	uq := models.UserQuest{
		ID:      uuid.NewString(),
		UserID:  userID,
		QuestID: questID,
		Status:  models.UserQuestActive,
	}
	if err := s.DB.Create(&uq).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.UserQuest
			if err := s.DB.Where("user_id = ? AND quest_id = ?", userID, questID).
				First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, fmt.Errorf("failed to assign quest: %w", err)
	}
	return &uq, nil
}

// CreateQuestParams seeds a quest template (admin only).
type CreateQuestParams struct {
	Title        string
	Description  string
	QuestType    models.QuestType
	Requirements json.RawMessage
	RewardAmount int64
	ActiveFrom   time.Time
	ActiveUntil  time.Time
}

func (s *QuestService) CreateQuest(p CreateQuestParams) (*models.Quest, error) {
	quest := models.Quest{
		ID:           uuid.NewString(),
		Title:        p.Title,
		Description:  p.Description,
		QuestType:    p.QuestType,
		Requirements: p.Requirements,
		RewardAmount: p.RewardAmount,
		ActiveFrom:   p.ActiveFrom,
		ActiveUntil:  p.ActiveUntil,
	}
	if quest.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if !quest.ActiveUntil.After(quest.ActiveFrom) {
		return nil, fmt.Errorf("active_until must be after active_from")
	}
	// Decode once up front so a malformed template is rejected here, not
	// logged as a warning on every check-in.
	if _, err := quest.DecodeRequirements(); err != nil {
		return nil, err
	}
	if err := s.DB.Create(&quest).Error; err != nil {
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}
	return &quest, nil
}

// ExpireOverdue persists the expired status for active/completed bindings
// whose quest window has closed. Claim is also guarded at read time, so
// this sweep only makes the projection durable.
func (s *QuestService) ExpireOverdue(now time.Time) (int64, error) {
	overdue := s.DB.Model(&models.Quest{}).Select("id").Where("active_until <= ?", now)
	res := s.DB.Model(&models.UserQuest{}).
		Where("status IN ? AND quest_id IN (?)",
			[]models.UserQuestStatus{models.UserQuestActive, models.UserQuestCompleted}, overdue).
		Update("status", models.UserQuestExpired)
	return res.RowsAffected, res.Error
}

// ProgressPercent is for display only: the stored progress itself is never
// clamped.
func ProgressPercent(progress, target int) int {
	if target < 1 {
		target = 1
	}
	pct := float64(progress) / float64(target) * 100
	if pct > 100 {
		pct = 100
	}
	return int(pct)
}
