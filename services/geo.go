package services

import "math"

const earthRadiusKm = 6371.0

// DefaultCheckInRadiusKm is the proximity threshold (100 m) used when the
// operator does not override it via CHECKIN_RADIUS_KM.
const DefaultCheckInRadiusKm = 0.1

// DistanceKm returns the haversine great-circle distance between two
// coordinates in kilometers. Pure and total: callers validate coordinate
// ranges, garbage in produces a well-defined but meaningless number.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// IsAdmissible reports whether a check-in attempt at the given distance is
// allowed. Rejection is a normal negative outcome, not an error.
func IsAdmissible(distanceKm, thresholdKm float64) bool {
	return distanceKm <= thresholdKm
}
