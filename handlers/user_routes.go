// handlers/user_routes.go
package handlers

import (
	"errors"

	"streetpass-backend/middleware"
	"streetpass-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService, checkInService *services.CheckInService) {
	// 🔓 Wallet association — public (still behind Gateway auth). Called on
	// first connect; idempotent per normalized address.
	app.Post("/users", func(c *fiber.Ctx) error {
		var req struct {
			WalletAddress string `json:"wallet_address"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.WalletAddress == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "wallet_address is required"})
		}

		user, err := userService.EnsureUser(req.WalletAddress)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to associate wallet",
				"cause": err.Error(),
			})
		}
		return c.JSON(user)
	})

	// 🔐 Secured routes — user context from Gateway
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/user", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		user, err := userService.GetUser(userID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load user",
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
			"id":             user.ID,
			"wallet_address": user.WalletAddress,
			"username":       user.Username,
			"total_points":   user.TotalPoints,
			"level":          user.Level,
			"collection":     counts,
			"created_at":     user.CreatedAt,
		})
	})

	secured.Patch("/user/username", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Username string `json:"username"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.Username == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "username is required"})
		}

		user, err := userService.SetUsername(userID, req.Username)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUsernameTaken):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "username already taken"})
			case errors.Is(err, services.ErrUserNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to update username",
					"cause": err.Error(),
				})
			}
		}
		return c.JSON(user)
	})
}
