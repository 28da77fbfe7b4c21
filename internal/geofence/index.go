// Package geofence answers zone-membership and nearest-zone queries over a
// static set of named circular zones. The index is immutable after
// construction and safe for unsynchronized concurrent reads.
package geofence

import (
	"fmt"
	"sort"

	"fleet-insight/internal/domain"
	"fleet-insight/internal/geo"
)

type Index struct {
	zones []domain.GeofenceZone // sorted by id
}

// NewIndex validates and loads the zone set. At least one zone with a
// positive radius and a unique id is required.
func NewIndex(zones []domain.GeofenceZone) (*Index, error) {
	if len(zones) == 0 {
		return nil, domain.ConfigurationError{Field: "geofenceZones", Reason: "at least one zone required"}
	}

	seen := make(map[string]struct{}, len(zones))
	sorted := make([]domain.GeofenceZone, len(zones))
	copy(sorted, zones)

	for _, z := range sorted {
		if err := z.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[z.ID]; dup {
			return nil, domain.ConfigurationError{Field: "geofenceZones", Reason: fmt.Sprintf("duplicate zone id %q", z.ID)}
		}
		seen[z.ID] = struct{}{}
	}

	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &Index{zones: sorted}, nil
}

// ZonesContaining returns the ids of every zone whose radius covers pos,
// boundary inclusive, sorted ascending.
func (idx *Index) ZonesContaining(pos domain.Coordinate) []string {
	var ids []string
	for _, z := range idx.zones {
		if geo.DistanceKm(pos, z.Center) <= z.RadiusKm {
			ids = append(ids, z.ID)
		}
	}
	return ids
}

// Nearest returns the zone with the minimum center distance from pos.
// Ties go to the lowest zone id; the iteration order (sorted by id) makes
// the strict < comparison deterministic.
func (idx *Index) Nearest(pos domain.Coordinate) (zoneID string, distanceKm float64, ok bool) {
	if len(idx.zones) == 0 {
		return "", 0, false
	}

	best := idx.zones[0]
	bestDist := geo.DistanceKm(pos, best.Center)
	for _, z := range idx.zones[1:] {
		if d := geo.DistanceKm(pos, z.Center); d < bestDist {
			best, bestDist = z, d
		}
	}
	return best.ID, bestDist, true
}

// Zones returns the loaded zone set, sorted by id.
func (idx *Index) Zones() []domain.GeofenceZone {
	out := make([]domain.GeofenceZone, len(idx.zones))
	copy(out, idx.zones)
	return out
}
