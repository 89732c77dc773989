package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLocation(t *testing.T) {
	db := newTestDB(t)
	svc := NewLocationService(db)

	loc, err := svc.CreateLocation(CreateLocationParams{
		Name:       "Golden Gate Overlook",
		Latitude:   37.8324,
		Longitude:  -122.4795,
		Category:   "landmark",
		BaseRarity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "golden-gate-overlook", loc.Slug)

	t.Run("slug collision gets a suffix", func(t *testing.T) {
		dup, err := svc.CreateLocation(CreateLocationParams{
			Name:       "Golden Gate Overlook",
			Latitude:   37.83,
			Longitude:  -122.48,
			Category:   "landmark",
			BaseRarity: 2,
		})
		require.NoError(t, err)
		assert.NotEqual(t, loc.Slug, dup.Slug)
		assert.Contains(t, dup.Slug, "golden-gate-overlook-")
	})

	t.Run("validation", func(t *testing.T) {
		_, err := svc.CreateLocation(CreateLocationParams{Name: "", Category: "cafe", BaseRarity: 1})
		assert.Error(t, err)
		_, err = svc.CreateLocation(CreateLocationParams{Name: "X", Category: "cafe", BaseRarity: 5})
		assert.Error(t, err)
	})
}

func TestGetStatsZeroValue(t *testing.T) {
	db := newTestDB(t)
	svc := NewLocationService(db)
	loc := seedLocation(t, db, "Quiet Corner", "park", 1, 0, 0)

	stats, err := svc.GetStats(loc.ID)
	require.NoError(t, err)
	assert.Equal(t, loc.ID, stats.LocationID)
	assert.Equal(t, int64(0), stats.TotalCheckIns, "never-visited locations report zero, not an error")
	assert.Nil(t, stats.LastCheckIn)
}

func TestNearbyLocations(t *testing.T) {
	db := newTestDB(t)
	svc := NewLocationService(db)

	near := seedLocation(t, db, "Doorstep Cafe", "cafe", 1, 40.7128, -74.0060)
	mid := seedLocation(t, db, "Uptown Gallery", "museum", 2, 40.7228, -74.0060)
	far := seedLocation(t, db, "Tokyo Tower", "landmark", 4, 35.6586, 139.7454)

	out, err := svc.NearbyLocations(40.7128, -74.0060, DefaultCheckInRadiusKm)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, near.ID, out[0].ID)
	assert.Equal(t, mid.ID, out[1].ID)
	assert.Equal(t, far.ID, out[2].ID)

	assert.True(t, out[0].InRange)
	assert.False(t, out[1].InRange, "~1.1 km away is outside the 100 m radius")
	assert.False(t, out[2].InRange)
	assert.Greater(t, out[2].DistanceKm, 10000.0)
}
