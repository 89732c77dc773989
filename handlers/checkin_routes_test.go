package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"streetpass-backend/models"
	"streetpass-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newHandlerApp(t *testing.T) (*fiber.App, *gorm.DB) {
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

	users := services.NewUserService(db)
	quests := services.NewQuestService(db, users)
	checkIns := services.NewCheckInService(db, users, quests)

	app := fiber.New()
	SetupCheckInRoutes(app, checkIns)
	return app, db
}

func seedHandlerFixtures(t *testing.T, db *gorm.DB) (*models.User, *models.Location) {
	t.Helper()

	user := models.User{ID: uuid.NewString(), WalletAddress: "0xfeed", Level: 1}
	require.NoError(t, db.Create(&user).Error)

	loc := models.Location{
		ID:         uuid.NewString(),
		Name:       "Pioneer Square",
		Slug:       "pioneer-square",
		Latitude:   47.6019,
		Longitude:  -122.3318,
		Category:   "landmark",
		BaseRarity: 1,
	}
	require.NoError(t, db.Create(&loc).Error)
	return &user, &loc
}

func doJSON(t *testing.T, app *fiber.App, method, path, userID string, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)
	return resp
}

func TestPostCheckIn(t *testing.T) {
	app, db := newHandlerApp(t)
	user, loc := seedHandlerFixtures(t, db)

	body := fmt.Sprintf(`{"location_id": %q, "latitude": %f, "longitude": %f, "idempotency_key": %q}`,
		loc.ID, loc.Latitude, loc.Longitude, uuid.NewString())

	t.Run("requires the gateway user context", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/s/check-ins", "", body)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("creates the check-in", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/s/check-ins", user.ID, body)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var result services.CheckInResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, loc.ID, result.CheckIn.LocationID)
		assert.Greater(t, result.PointsAwarded, int64(0))
	})

	t.Run("replay of the same key conflicts", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/s/check-ins", user.ID, body)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("out of range reports the measured distance", func(t *testing.T) {
		farBody := fmt.Sprintf(`{"location_id": %q, "latitude": 47.7019, "longitude": -122.3318}`, loc.ID)
		resp := doJSON(t, app, "POST", "/s/check-ins", user.ID, farBody)
		require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Equal(t, "out of range", payload["error"])
		assert.Greater(t, payload["distance_km"].(float64), 1.0)
	})

	t.Run("unknown location", func(t *testing.T) {
		ghost := fmt.Sprintf(`{"location_id": %q, "latitude": 0, "longitude": 0}`, uuid.NewString())
		resp := doJSON(t, app, "POST", "/s/check-ins", user.ID, ghost)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("validation", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/s/check-ins", user.ID, `{"location_id": ""}`)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		resp = doJSON(t, app, "POST", "/s/check-ins", user.ID,
			fmt.Sprintf(`{"location_id": %q, "latitude": 91, "longitude": 0}`, loc.ID))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetCheckIns(t *testing.T) {
	app, db := newHandlerApp(t)
	user, loc := seedHandlerFixtures(t, db)

	body := fmt.Sprintf(`{"location_id": %q, "latitude": %f, "longitude": %f}`,
		loc.ID, loc.Latitude, loc.Longitude)
	resp := doJSON(t, app, "POST", "/s/check-ins", user.ID, body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/s/check-ins", user.ID, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		CheckIns []models.CheckIn        `json:"check_ins"`
		Counts   map[services.Tier]int64 `json:"counts"`
		Total    int                     `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 1, payload.Total)
	require.Len(t, payload.CheckIns, 1)
	assert.Equal(t, loc.ID, payload.CheckIns[0].LocationID)

	t.Run("unknown tier is rejected", func(t *testing.T) {
		resp := doJSON(t, app, "GET", "/s/check-ins?rarity=mythic", user.ID, "")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("tier filter", func(t *testing.T) {
		resp := doJSON(t, app, "GET", "/s/check-ins?rarity=legendary", user.ID, "")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var filtered struct {
			Total int `json:"total"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&filtered))
		assert.Zero(t, filtered.Total)
	})
}
