package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"streetpass-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCheckInCooldown is the dedup window: a second check-in by the same
// user at the same location inside it is rejected, whatever its
// idempotency key.
const DefaultCheckInCooldown = 24 * time.Hour

const maxTxAttempts = 3

type CheckInService struct {
	DB       *gorm.DB
	RadiusKm float64
	Cooldown time.Duration

	users  *UserService
	quests *QuestService
}

func NewCheckInService(db *gorm.DB, users *UserService, quests *QuestService) *CheckInService {
	return &CheckInService{
		DB:       db,
		RadiusKm: DefaultCheckInRadiusKm,
		Cooldown: DefaultCheckInCooldown,
		users:    users,
		quests:   quests,
	}
}

type CheckInParams struct {
	UserID     string
	LocationID string
	Latitude   float64
	Longitude  float64

	// IdempotencyKey is caller-supplied; a retried submission with the same
	// key dedupes instead of double-awarding. Empty means the caller opted
	// out and only the cooldown window protects it.
	IdempotencyKey string

	Now time.Time
}

type CheckInResult struct {
	CheckIn       models.CheckIn `json:"check_in"`
	Tier          Tier           `json:"tier"`
	PointsAwarded int64          `json:"points_awarded"`
	TotalPoints   int64          `json:"total_points"`
	Level         int            `json:"level"`
}

// CheckIn runs the whole admission → scoring → persistence → quest
// advancement pipeline as one storage transaction: either the check-in
// record, its point credit and all matching quest advancements commit
// together, or none of them do. The on-chain mint is only enqueued here
// (outbox row); the worker settles it after commit.
//
// Transient storage conflicts are retried a bounded number of times; the
// idempotency key makes those retries safe.
func (s *CheckInService) CheckIn(p CheckInParams) (*CheckInResult, error) {
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	if p.IdempotencyKey == "" {
		p.IdempotencyKey = uuid.NewString()
	}

	var res *CheckInResult
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		res, err = s.checkInOnce(p)
		if err == nil || !isTransient(err) {
			return res, err
		}
		log.Printf("⚠️  [CHECKIN] transient conflict (attempt %d/%d): %v", attempt, maxTxAttempts, err)
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return nil, fmt.Errorf("check-in did not commit after %d attempts: %w", maxTxAttempts, err)
}

func (s *CheckInService) checkInOnce(p CheckInParams) (*CheckInResult, error) {
	var result CheckInResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := lockUser(tx, p.UserID, &user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var location models.Location
		if err := tx.Where("id = ?", p.LocationID).First(&location).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLocationNotFound
			}
			return err
		}

		distance := DistanceKm(p.Latitude, p.Longitude, location.Latitude, location.Longitude)
		if !IsAdmissible(distance, s.RadiusKm) {
			return &OutOfRangeError{DistanceKm: distance, ThresholdKm: s.RadiusKm}
		}

		// Dedup: replayed key, or same user+location inside the cooldown.
		var dupes int64
		if err := tx.Model(&models.CheckIn{}).
			Where("idempotency_key = ?", p.IdempotencyKey).
			Or(tx.Where("user_id = ? AND location_id = ? AND timestamp > ?",
				p.UserID, p.LocationID, p.Now.Add(-s.Cooldown))).
			Count(&dupes).Error; err != nil {
			return err
		}
		if dupes > 0 {
			return ErrAlreadyCheckedIn
		}

		score := RarityScore(location.BaseRarity, p.Now)
		points := PointsForScore(score)

		checkIn := models.CheckIn{
			ID:             uuid.NewString(),
			UserID:         user.ID,
			LocationID:     location.ID,
			Timestamp:      p.Now,
			RarityScore:    score,
			IdempotencyKey: p.IdempotencyKey,
		}
		if err := tx.Create(&checkIn).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyCheckedIn // lost a race with our own retry
			}
			return fmt.Errorf("failed to persist check-in: %w", err)
		}

		credited, err := s.users.CreditPoints(tx, user.ID, points,
			fmt.Sprintf("check_in_%s", location.Slug))
		if err != nil {
			return err
		}

		if err := s.quests.ApplyCheckIn(tx, CheckInEvent{
			UserID:     user.ID,
			CheckInID:  checkIn.ID,
			LocationID: location.ID,
			Category:   location.Category,
			At:         p.Now,
		}); err != nil {
			return err
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "location_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_check_ins": gorm.Expr("location_stats.total_check_ins + 1"),
				"last_check_in":   p.Now,
			}),
		}).Create(&models.LocationStats{
			LocationID:    location.ID,
			TotalCheckIns: 1,
			LastCheckIn:   &p.Now,
		}).Error; err != nil {
			return fmt.Errorf("failed to bump location stats: %w", err)
		}

		task := models.MintTask{
			ID:            uuid.NewString(),
			CheckInID:     checkIn.ID,
			UserID:        user.ID,
			WalletAddress: user.WalletAddress,
			LocationID:    location.ID,
			RarityScore:   score,
			Status:        models.MintTaskPending,
		}
		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("failed to enqueue mint task: %w", err)
		}

		result = CheckInResult{
			CheckIn:       checkIn,
			Tier:          TierForScore(score),
			PointsAwarded: points,
			TotalPoints:   credited.TotalPoints,
			Level:         credited.Level,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📍 Check-in: user=%s location=%s score=%d tier=%s points=%d",
		result.CheckIn.UserID, result.CheckIn.LocationID,
		result.CheckIn.RarityScore, result.Tier, result.PointsAwarded)
	return &result, nil
}

// lockUser loads the user row under a row lock, so concurrent check-ins by
// the same user serialize before the dedup window count runs. Without it,
// two submissions with distinct idempotency keys could both count zero
// dupes and both insert. SQLite has no row locks; there the single writer
// serializes the transactions and the driver drops the clause.
func lockUser(tx *gorm.DB, userID string, user *models.User) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).First(user)
}

// isTransient classifies storage errors worth a local retry. Terminal
// outcomes (admission, validation, dedup) are never retried.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPersistenceConflict) {
		return true
	}
	var oor *OutOfRangeError
	if errors.As(err, &oor) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrLocationNotFound) ||
		errors.Is(err, ErrAlreadyCheckedIn) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "serialization") ||
		strings.Contains(msg, "database is locked")
}

// ListCheckIns returns the user's collection newest-first, optionally
// filtered to one rarity tier.
func (s *CheckInService) ListCheckIns(userID string, tier Tier) ([]models.CheckIn, error) {
	q := s.DB.Preload("Location").Where("user_id = ?", userID)
	if tier != "" {
		lo, hi := tierScoreRange(tier)
		q = q.Where("rarity_score >= ? AND rarity_score <= ?", lo, hi)
	}

	var checkIns []models.CheckIn
	if err := q.Order("timestamp DESC").Find(&checkIns).Error; err != nil {
		return nil, err
	}
	return checkIns, nil
}

// CollectionCounts returns per-tier check-in counts for the collection
// header.
func (s *CheckInService) CollectionCounts(userID string) (map[Tier]int64, error) {
	counts := make(map[Tier]int64, 4)
	for _, tier := range []Tier{TierCommon, TierRare, TierEpic, TierLegendary} {
		lo, hi := tierScoreRange(tier)
		var n int64
		if err := s.DB.Model(&models.CheckIn{}).
			Where("user_id = ? AND rarity_score >= ? AND rarity_score <= ?", userID, lo, hi).
			Count(&n).Error; err != nil {
			return nil, err
		}
		counts[tier] = n
	}
	return counts, nil
}

func tierScoreRange(tier Tier) (int, int) {
	switch tier {
	case TierLegendary:
		return 75, 100
	case TierEpic:
		return 50, 74
	case TierRare:
		return 25, 49
	default:
		return 0, 24
	}
}
