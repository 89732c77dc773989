package services

import (
	"errors"
	"fmt"
	"log"
	"math"

	"streetpass-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LevelConfig: points needed for *next* level (level 1 → 2 needs
// BasePointsPerLevel * 1^1.2, and so on).
const BasePointsPerLevel = 500

func pointsForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	return int64(float64(BasePointsPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// LevelForPoints derives the level from a total point count. Pure, so
// concurrent credits converge on the same level for the same total.
func LevelForPoints(total int64) int {
	level := 1
	need := pointsForNextLevel(level)
	for total >= need {
		total -= need
		level++
		need = pointsForNextLevel(level)
	}
	return level
}

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// EnsureUser returns the user bound to the wallet address, creating it on
// first association. Idempotent: a concurrent first connect from two
// devices still yields a single row per normalized address.
func (s *UserService) EnsureUser(walletAddress string) (*models.User, error) {
	wallet := models.NormalizeWallet(walletAddress)
	if wallet == "" {
		return nil, fmt.Errorf("wallet address is empty")
	}

	user := models.User{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		TotalPoints:   0,
		Level:         1,
	}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}},
		DoNothing: true,
	}).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	// Re-read: on conflict the insert was a no-op and the generated ID
	// above never landed.
	var out models.User
	if err := s.DB.Where("wallet_address = ?", wallet).First(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load user after ensure: %w", err)
	}
	return &out, nil
}

func (s *UserService) GetUser(id string) (*models.User, error) {
	var user models.User
	if err := s.DB.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) GetUserByWallet(walletAddress string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("wallet_address = ?", models.NormalizeWallet(walletAddress)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetUsername updates the display name; a unique-index hit surfaces as
// ErrUsernameTaken rather than a generic storage error.
func (s *UserService) SetUsername(userID, username string) (*models.User, error) {
	res := s.DB.Model(&models.User{}).Where("id = ?", userID).Update("username", username)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetUser(userID)
}

// CreditPoints adds delta to the user's total as an atomic SQL increment —
// never read-total-add-write — so concurrent credits both land. The level
// is recomputed from the authoritative post-increment total.
func (s *UserService) CreditPoints(tx *gorm.DB, userID string, delta int64, reason string) (*models.User, error) {
	res := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("total_points", gorm.Expr("total_points + ?", delta))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to credit points: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to reload user after credit: %w", err)
	}

	if newLevel := LevelForPoints(user.TotalPoints); newLevel != user.Level {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("level", newLevel).Error; err != nil {
			return nil, fmt.Errorf("failed to update level: %w", err)
		}
		user.Level = newLevel
	}

	log.Printf("🎮 Points credited: %s → +%d (total=%d, lvl=%d, reason: %s)",
		userID, delta, user.TotalPoints, user.Level, reason)
	return &user, nil
}
