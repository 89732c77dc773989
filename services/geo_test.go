package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	t.Run("zero for identical coordinates", func(t *testing.T) {
		assert.Zero(t, DistanceKm(48.8566, 2.3522, 48.8566, 2.3522))
		assert.Zero(t, DistanceKm(0, 0, 0, 0))
	})

	t.Run("symmetric", func(t *testing.T) {
		a := DistanceKm(48.8566, 2.3522, 51.5074, -0.1278)
		b := DistanceKm(51.5074, -0.1278, 48.8566, 2.3522)
		assert.InDelta(t, a, b, 1e-9)
	})

	t.Run("one degree of longitude at the equator", func(t *testing.T) {
		// 6371 km * pi / 180
		assert.InDelta(t, 111.19, DistanceKm(0, 0, 0, 1), 0.05)
	})

	t.Run("never negative", func(t *testing.T) {
		assert.GreaterOrEqual(t, DistanceKm(-33.9, 151.2, 40.7, -74.0), 0.0)
	})
}

func TestIsAdmissible(t *testing.T) {
	assert.True(t, IsAdmissible(0, 0.1))
	assert.True(t, IsAdmissible(0.1, 0.1), "threshold itself is admissible")
	assert.False(t, IsAdmissible(0.1001, 0.1))
	assert.True(t, IsAdmissible(0.4, 0.5), "operator-tuned threshold")
}
