package services

import (
	"errors"
	"fmt"
	"sort"

	"streetpass-backend/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type LocationService struct {
	DB *gorm.DB
}

func NewLocationService(db *gorm.DB) *LocationService {
	return &LocationService{DB: db}
}

func (s *LocationService) GetLocation(id string) (*models.Location, error) {
	var loc models.Location
	if err := s.DB.Where("id = ?", id).First(&loc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	return &loc, nil
}

func (s *LocationService) ListLocations() ([]models.Location, error) {
	var locations []models.Location
	if err := s.DB.Order("name ASC").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

// CreateLocationParams seeds a catalog row (admin only — the core itself
// never mutates the catalog).
type CreateLocationParams struct {
	Name        string
	Description *string
	Address     *string
	Latitude    float64
	Longitude   float64
	Category    string
	BaseRarity  int
}

func (s *LocationService) CreateLocation(p CreateLocationParams) (*models.Location, error) {
	if p.Name == "" || p.Category == "" {
		return nil, fmt.Errorf("name and category are required")
	}
	if p.BaseRarity < 1 || p.BaseRarity > 4 {
		return nil, fmt.Errorf("base_rarity must be between 1 and 4")
	}

	loc := models.Location{
		ID:          uuid.NewString(),
		Name:        p.Name,
		Slug:        slug.Make(p.Name),
		Description: p.Description,
		Address:     p.Address,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Category:    p.Category,
		BaseRarity:  p.BaseRarity,
	}
	if err := s.DB.Create(&loc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Slug collision — disambiguate with a short suffix.
			loc.Slug = fmt.Sprintf("%s-%s", loc.Slug, loc.ID[:8])
			if err := s.DB.Create(&loc).Error; err != nil {
				return nil, fmt.Errorf("failed to create location: %w", err)
			}
			return &loc, nil
		}
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return &loc, nil
}

func (s *LocationService) GetStats(locationID string) (*models.LocationStats, error) {
	var stats models.LocationStats
	err := s.DB.Where("location_id = ?", locationID).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.LocationStats{LocationID: locationID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// LocationWithDistance decorates a catalog row with the caller's measured
// distance, for the nearby-locations listing.
type LocationWithDistance struct {
	models.Location
	DistanceKm float64 `json:"distance_km"`
	InRange    bool    `json:"in_range"`
}

// NearbyLocations returns the catalog sorted nearest-first from the given
// coordinates, flagging which rows are within check-in range.
func (s *LocationService) NearbyLocations(lat, lon, radiusKm float64) ([]LocationWithDistance, error) {
	locations, err := s.ListLocations()
	if err != nil {
		return nil, err
	}

	out := make([]LocationWithDistance, len(locations))
	for i, loc := range locations {
		d := DistanceKm(lat, lon, loc.Latitude, loc.Longitude)
		out[i] = LocationWithDistance{
			Location:   loc,
			DistanceKm: d,
			InRange:    IsAdmissible(d, radiusKm),
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}
