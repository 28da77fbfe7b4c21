package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fleet-insight/internal/domain"
)

var (
	newYork    = domain.Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	losAngeles = domain.Coordinate{Latitude: 34.0522, Longitude: -118.2437}
	london     = domain.Coordinate{Latitude: 51.5074, Longitude: -0.1278}
)

func TestDistanceKm_KnownDistances(t *testing.T) {
	// Reference values from great-circle calculators, ±0.5% for the
	// spherical-earth approximation.
	assert.InEpsilon(t, 3936, DistanceKm(newYork, losAngeles), 0.005)
	assert.InEpsilon(t, 5570, DistanceKm(newYork, london), 0.005)
}

func TestDistanceKm_Symmetric(t *testing.T) {
	pairs := []struct{ a, b domain.Coordinate }{
		{newYork, losAngeles},
		{newYork, london},
		{domain.Coordinate{Latitude: -33.8688, Longitude: 151.2093}, london},
		{domain.Coordinate{Latitude: 0, Longitude: 179.9}, domain.Coordinate{Latitude: 0, Longitude: -179.9}},
	}
	for _, p := range pairs {
		assert.Equal(t, DistanceKm(p.a, p.b), DistanceKm(p.b, p.a))
	}
}

func TestDistanceKm_ZeroIffEqual(t *testing.T) {
	assert.Zero(t, DistanceKm(newYork, newYork))
	assert.Zero(t, DistanceKm(domain.Coordinate{}, domain.Coordinate{}))

	near := domain.Coordinate{Latitude: 40.7128, Longitude: -74.00601}
	assert.Greater(t, DistanceKm(newYork, near), 0.0)
}

func TestDistanceKm_NeverNegative(t *testing.T) {
	coords := []domain.Coordinate{
		{Latitude: 90, Longitude: 0},
		{Latitude: -90, Longitude: 0},
		{Latitude: 0, Longitude: 180},
		{Latitude: 0, Longitude: -180},
		newYork,
	}
	for _, a := range coords {
		for _, b := range coords {
			assert.GreaterOrEqual(t, DistanceKm(a, b), 0.0)
		}
	}
}

func TestBearingDegrees(t *testing.T) {
	origin := domain.Coordinate{Latitude: 0, Longitude: 0}

	north := BearingDegrees(origin, domain.Coordinate{Latitude: 1, Longitude: 0})
	assert.InDelta(t, 0, north, 0.01)

	east := BearingDegrees(origin, domain.Coordinate{Latitude: 0, Longitude: 1})
	assert.InDelta(t, 90, east, 0.01)

	south := BearingDegrees(origin, domain.Coordinate{Latitude: -1, Longitude: 0})
	assert.InDelta(t, 180, south, 0.01)

	west := BearingDegrees(origin, domain.Coordinate{Latitude: 0, Longitude: -1})
	assert.InDelta(t, 270, west, 0.01)
}

func TestBearingDegrees_Range(t *testing.T) {
	coords := []domain.Coordinate{newYork, losAngeles, london, {Latitude: -45, Longitude: 120}}
	for _, a := range coords {
		for _, b := range coords {
			if a == b {
				continue
			}
			bearing := BearingDegrees(a, b)
			assert.GreaterOrEqual(t, bearing, 0.0)
			assert.Less(t, bearing, 360.0)
		}
	}
}
