package services

import (
	"fmt"
	"time"
)

// Tier buckets a 0-100 rarity score for display and reward sizing.
type Tier string

const (
	TierCommon    Tier = "common"
	TierRare      Tier = "rare"
	TierEpic      Tier = "epic"
	TierLegendary Tier = "legendary"
)

// ParseTier validates a tier name from a query parameter. Empty means no
// filter; anything else outside the four tiers is an error, not a silent
// fallback to common.
func ParseTier(s string) (Tier, error) {
	switch tier := Tier(s); tier {
	case "", TierCommon, TierRare, TierEpic, TierLegendary:
		return tier, nil
	default:
		return "", fmt.Errorf("unknown rarity tier %q", s)
	}
}

// PointsPerRarityUnit converts a rarity score into the point award.
const PointsPerRarityUnit = 10

// Night bonus window: 20:00 up to 06:00 the next morning, local time.
// Both bounds check the wall-clock hour, so 20:00 is in and 06:00 is out.
const (
	nightStartHour = 20
	nightEndHour   = 6
	nightBonus     = 1.5
)

// RarityScore computes the 0-100 score for a check-in: base rarity (1-4)
// times 25, with a 1.5x bonus for night-time check-ins, clamped at 100.
func RarityScore(baseRarity int, at time.Time) int {
	if baseRarity < 1 {
		baseRarity = 1
	}

	bonus := 1.0
	hour := at.Hour()
	if hour >= nightStartHour || hour < nightEndHour {
		bonus = nightBonus
	}

	score := int(float64(baseRarity) * 25 * bonus)
	if score > 100 {
		score = 100
	}
	return score
}

// TierForScore classifies a score. Lower bounds are inclusive: exactly 75
// is legendary. A missing score (zero value) falls through to common.
func TierForScore(score int) Tier {
	switch {
	case score >= 75:
		return TierLegendary
	case score >= 50:
		return TierEpic
	case score >= 25:
		return TierRare
	default:
		return TierCommon
	}
}

// PointsForScore is the point award for a check-in with the given score.
func PointsForScore(score int) int64 {
	return int64(score) * PointsPerRarityUnit
}
