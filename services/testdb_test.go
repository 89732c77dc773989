package services

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"streetpass-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a uniquely named in-memory SQLite database so each test
// gets isolated state while GORM's pooled connections still share it.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Location{},
		&models.LocationStats{},
		&models.CheckIn{},
		&models.Quest{},
		&models.UserQuest{},
		&models.QuestProgressEvent{},
		&models.MintTask{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, wallet string, points int64) *models.User {
	t.Helper()
	user := models.User{
		ID:            uuid.NewString(),
		WalletAddress: models.NormalizeWallet(wallet),
		TotalPoints:   points,
		Level:         LevelForPoints(points),
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func seedLocation(t *testing.T, db *gorm.DB, name, category string, baseRarity int, lat, lon float64) *models.Location {
	t.Helper()
	loc := models.Location{
		ID:         uuid.NewString(),
		Name:       name,
		Slug:       fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		Latitude:   lat,
		Longitude:  lon,
		Category:   category,
		BaseRarity: baseRarity,
	}
	require.NoError(t, db.Create(&loc).Error)
	return &loc
}

func seedQuest(t *testing.T, db *gorm.DB, questType models.QuestType, requirements interface{}, reward int64, from, until time.Time) *models.Quest {
	t.Helper()
	payload, err := json.Marshal(requirements)
	require.NoError(t, err)

	quest := models.Quest{
		ID:           uuid.NewString(),
		Title:        fmt.Sprintf("%s quest", questType),
		QuestType:    questType,
		Requirements: payload,
		RewardAmount: reward,
		ActiveFrom:   from,
		ActiveUntil:  until,
	}
	require.NoError(t, db.Create(&quest).Error)
	return &quest
}

func seedUserQuest(t *testing.T, db *gorm.DB, userID, questID string) *models.UserQuest {
	t.Helper()
	uq := models.UserQuest{
		ID:      uuid.NewString(),
		UserID:  userID,
		QuestID: questID,
		Status:  models.UserQuestActive,
	}
	require.NoError(t, db.Create(&uq).Error)
	return &uq
}
