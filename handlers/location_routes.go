// handlers/location_routes.go
package handlers

import (
	"strconv"

	"streetpass-backend/middleware"
	"streetpass-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLocationRoutes(app *fiber.App, locationService *services.LocationService, checkInService *services.CheckInService) {
	// 🔓 Catalog listing — public. With caller coordinates it returns
	// distances and in-range flags, sorted nearest first.
	app.Get("/locations", func(c *fiber.Ctx) error {
		latStr, lonStr := c.Query("lat"), c.Query("lon")
		if latStr != "" && lonStr != "" {
			lat, errLat := strconv.ParseFloat(latStr, 64)
			lon, errLon := strconv.ParseFloat(lonStr, 64)
			if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid coordinates"})
			}

			nearby, err := locationService.NearbyLocations(lat, lon, checkInService.RadiusKm)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to list locations",
					"cause": err.Error(),
				})
			}
			return c.JSON(nearby)
		}

		locations, err := locationService.ListLocations()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list locations",
				"cause": err.Error(),
			})
		}
		return c.JSON(locations)
	})

	app.Get("/locations/:id/stats", func(c *fiber.Ctx) error {
		stats, err := locationService.GetStats(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load stats",
				"cause": err.Error(),
			})
		}
		return c.JSON(stats)
	})

	// Admin endpoints — catalog seeding
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/locations", func(c *fiber.Ctx) error {
		var req struct {
			Name        string  `json:"name"`
			Description *string `json:"description"`
			Address     *string `json:"address"`
			Latitude    float64 `json:"latitude"`
			Longitude   float64 `json:"longitude"`
			Category    string  `json:"category"`
			BaseRarity  int     `json:"base_rarity"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		loc, err := locationService.CreateLocation(services.CreateLocationParams{
			Name:        req.Name,
			Description: req.Description,
			Address:     req.Address,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			Category:    req.Category,
			BaseRarity:  req.BaseRarity,
		})
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to create location",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(loc)
	})
}
