// handlers/checkin_routes.go
package handlers

import (
	"errors"

	"streetpass-backend/middleware"
	"streetpass-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCheckInRoutes(app *fiber.App, checkInService *services.CheckInService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/check-ins", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			LocationID     string  `json:"location_id"`
			Latitude       float64 `json:"latitude"`
			Longitude      float64 `json:"longitude"`
			IdempotencyKey string  `json:"idempotency_key"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.LocationID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "location_id is required"})
		}
		if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid coordinates"})
		}

		result, err := checkInService.CheckIn(services.CheckInParams{
			UserID:         userID,
			LocationID:     req.LocationID,
			Latitude:       req.Latitude,
			Longitude:      req.Longitude,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			var oor *services.OutOfRangeError
			switch {
			case errors.As(err, &oor):
				// Normal negative outcome — surfaced with the measured distance.
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"error":        "out of range",
					"distance_km":  oor.DistanceKm,
					"threshold_km": oor.ThresholdKm,
				})
			case errors.Is(err, services.ErrAlreadyCheckedIn):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already checked in at this location"})
			case errors.Is(err, services.ErrLocationNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "location not found"})
			case errors.Is(err, services.ErrUserNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "check-in failed",
					"cause": err.Error(),
				})
			}
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	secured.Get("/check-ins", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		tier, err := services.ParseTier(c.Query("rarity"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid rarity tier",
				"cause": err.Error(),
			})
		}

		checkIns, err := checkInService.ListCheckIns(userID, tier)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load collection",
				"cause": err.Error(),
			})
		}
		counts, err := checkInService.CollectionCounts(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load collection counts",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"check_ins": checkIns,
			"counts":    counts,
			"total":     len(checkIns),
		})
	})
}
