// handlers/quest_routes.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"streetpass-backend/middleware"
	"streetpass-backend/models"
	"streetpass-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupQuestRoutes(app *fiber.App, questService *services.QuestService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/quests", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		now := time.Now()

		userQuests, err := questService.ListUserQuests(userID, now)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load quests",
				"cause": err.Error(),
			})
		}

		response := make([]fiber.Map, 0, len(userQuests))
		for _, uq := range userQuests {
			entry := fiber.Map{
				"id":           uq.ID,
				"quest_id":     uq.QuestID,
				"progress":     uq.Progress,
				"status":       uq.Status,
				"completed_at": uq.CompletedAt,
				"claimed_at":   uq.ClaimedAt,
			}
			if uq.Quest != nil {
				target := 1
				if req, err := uq.Quest.DecodeRequirements(); err == nil {
					target = req.Target()
				}
				entry["title"] = uq.Quest.Title
				entry["description"] = uq.Quest.Description
				entry["quest_type"] = uq.Quest.QuestType
				entry["requirement"] = requirementText(uq.Quest)
				entry["reward_amount"] = uq.Quest.RewardAmount
				entry["active_until"] = uq.Quest.ActiveUntil
				entry["progress_percent"] = services.ProgressPercent(uq.Progress, target)
				entry["seconds_remaining"] = secondsRemaining(uq.Quest.ActiveUntil, now)
			}
			response = append(response, entry)
		}
		return c.JSON(response)
	})

	secured.Post("/quests/:id/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		claimed, err := questService.ClaimReward(userID, c.Params("id"), time.Now())
		if err != nil {
			switch {
			case errors.Is(err, services.ErrQuestNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quest not found"})
			case errors.Is(err, services.ErrQuestAlreadyClaimed):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "reward already claimed"})
			case errors.Is(err, services.ErrQuestExpired):
				return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "quest has expired"})
			case errors.Is(err, services.ErrQuestNotCompleted):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "quest is not completed yet"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to claim reward",
					"cause": err.Error(),
				})
			}
		}

		return c.JSON(fiber.Map{
			"message":       "reward claimed",
			"user_quest":    claimed,
			"reward_amount": claimed.Quest.RewardAmount,
		})
	})

	// Admin endpoints — quest seeding and assignment
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/quests", func(c *fiber.Ctx) error {
		var req struct {
			Title        string           `json:"title"`
			Description  string           `json:"description"`
			QuestType    models.QuestType `json:"quest_type"`
			Requirements json.RawMessage  `json:"requirements"`
			RewardAmount int64            `json:"reward_amount"`
			ActiveFrom   time.Time        `json:"active_from"`
			ActiveUntil  time.Time        `json:"active_until"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		quest, err := questService.CreateQuest(services.CreateQuestParams{
			Title:        req.Title,
			Description:  req.Description,
			QuestType:    req.QuestType,
			Requirements: req.Requirements,
			RewardAmount: req.RewardAmount,
			ActiveFrom:   req.ActiveFrom,
			ActiveUntil:  req.ActiveUntil,
		})
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to create quest",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(quest)
	})

	adminGroup.Post("/quests/:id/assign", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
		}

		uq, err := questService.AssignQuest(req.UserID, c.Params("id"))
		if err != nil {
			if errors.Is(err, services.ErrQuestNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quest not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to assign quest",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(uq)
	})
}

func requirementText(quest *models.Quest) string {
	req, err := quest.DecodeRequirements()
	if err != nil {
		return "Complete the quest"
	}
	switch r := req.(type) {
	case models.VisitCountRequirement:
		return fmt.Sprintf("Visit %d locations", r.Count)
	case models.VisitCategoryRequirement:
		return fmt.Sprintf("Visit %d %s locations", r.Count, r.Category)
	case models.VisitSpecificRequirement:
		return fmt.Sprintf("Visit %d specific locations", len(r.LocationIDs))
	default:
		return "Complete the quest"
	}
}

func secondsRemaining(until, now time.Time) int64 {
	d := until.Sub(now)
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}
