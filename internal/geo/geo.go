// Package geo provides great-circle math between WGS84 coordinates.
package geo

import (
	"math"

	"fleet-insight/internal/domain"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the Haversine great-circle distance between a and b in
// kilometers. Symmetric, and zero iff a == b.
func DistanceKm(a, b domain.Coordinate) float64 {
	if a == b {
		return 0
	}

	lat1 := toRad(a.Latitude)
	lat2 := toRad(b.Latitude)
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BearingDegrees returns the initial great-circle bearing from a to b,
// normalized into [0, 360).
func BearingDegrees(a, b domain.Coordinate) float64 {
	lat1 := toRad(a.Latitude)
	lat2 := toRad(b.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
