package domain

import (
	"fmt"
	"time"
)

// Key identifies one tracked vehicle. Vehicle ids are only unique within
// an agency, so both parts are always carried together.
type Key struct {
	Agency    string
	VehicleID string
}

func (k Key) String() string {
	return k.Agency + "/" + k.VehicleID
}

// Coordinate is a WGS84 position.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// PositionEvent is one validated vehicle position fix. Immutable once
// produced by the validator.
type PositionEvent struct {
	Agency         string
	VehicleID      string
	RouteTag       string
	Position       Coordinate
	HeadingDegrees float64
	SpeedKmh       float64
	Timestamp      time.Time
	Predictable    bool
}

func (e PositionEvent) Key() Key {
	return Key{Agency: e.Agency, VehicleID: e.VehicleID}
}

// VehicleState is the latest known state for one vehicle. Owned by the
// state store; callers only ever see copies.
type VehicleState struct {
	Key              Key
	CurrentPosition  Coordinate
	PreviousPosition *Coordinate
	CurrentSpeedKmh  float64
	CurrentHeading   float64
	CurrentRoute     string
	LastEventTime    time.Time
	ActiveZones      map[string]struct{}
}

// Clone returns a deep copy safe to hand outside the store's locks.
func (s *VehicleState) Clone() VehicleState {
	out := *s
	if s.PreviousPosition != nil {
		prev := *s.PreviousPosition
		out.PreviousPosition = &prev
	}
	out.ActiveZones = make(map[string]struct{}, len(s.ActiveZones))
	for id := range s.ActiveZones {
		out.ActiveZones[id] = struct{}{}
	}
	return out
}

// InZone reports current membership of the given zone.
func (s *VehicleState) InZone(zoneID string) bool {
	_, ok := s.ActiveZones[zoneID]
	return ok
}

// GeofenceZone is a named circular region, immutable after load.
type GeofenceZone struct {
	ID       string
	Name     string
	Center   Coordinate
	RadiusKm float64
}

func (z GeofenceZone) Validate() error {
	if z.ID == "" {
		return ConfigurationError{Field: "zone.id", Reason: "must not be empty"}
	}
	if z.RadiusKm <= 0 {
		return ConfigurationError{Field: "zone.radiusKm", Reason: fmt.Sprintf("must be > 0, got %v (zone %s)", z.RadiusKm, z.ID)}
	}
	if z.Center.Latitude < -90 || z.Center.Latitude > 90 {
		return ConfigurationError{Field: "zone.centerLat", Reason: fmt.Sprintf("out of range (zone %s)", z.ID)}
	}
	if z.Center.Longitude < -180 || z.Center.Longitude > 180 {
		return ConfigurationError{Field: "zone.centerLon", Reason: fmt.Sprintf("out of range (zone %s)", z.ID)}
	}
	return nil
}
