// Package sim drives synthetic vehicles along waypoint routes to feed the
// engine with realistic position events.
package sim

import (
	"math/rand"
	"time"

	"fleet-insight/internal/domain"
	"fleet-insight/internal/geo"
)

// Route is a transit route as an ordered loop of waypoints.
type Route struct {
	Tag       string
	Title     string
	Waypoints []domain.Coordinate
}

// Vehicle moves along its route by linear interpolation between waypoints.
type Vehicle struct {
	ID            string
	Route         Route
	WaypointIndex int
	Progress      float64 // 0..1 along the current segment
	SpeedKmh      float64
	Heading       float64
}

// CurrentPosition interpolates between the current and next waypoint.
func (v *Vehicle) CurrentPosition() domain.Coordinate {
	wps := v.Route.Waypoints
	if len(wps) == 0 {
		return domain.Coordinate{}
	}
	if v.WaypointIndex >= len(wps)-1 {
		return wps[len(wps)-1]
	}

	a := wps[v.WaypointIndex]
	b := wps[v.WaypointIndex+1]
	return domain.Coordinate{
		Latitude:  a.Latitude + (b.Latitude-a.Latitude)*v.Progress,
		Longitude: a.Longitude + (b.Longitude-a.Longitude)*v.Progress,
	}
}

// Advance moves the vehicle along its route for the given time step,
// looping back to the start when the route ends.
func (v *Vehicle) Advance(step time.Duration) {
	wps := v.Route.Waypoints
	if len(wps) < 2 || v.WaypointIndex >= len(wps)-1 {
		return
	}

	distanceKm := v.SpeedKmh / 3600 * step.Seconds()

	segment := geo.DistanceKm(wps[v.WaypointIndex], wps[v.WaypointIndex+1])
	if segment == 0 {
		v.WaypointIndex++
		v.Progress = 0
		return
	}

	v.Progress += distanceKm / segment
	for v.Progress >= 1.0 && v.WaypointIndex < len(wps)-1 {
		v.Progress -= 1.0
		v.WaypointIndex++

		if v.WaypointIndex >= len(wps)-1 {
			v.WaypointIndex = 0
			v.Progress = 0
			break
		}
	}

	v.updateHeading()
}

func (v *Vehicle) updateHeading() {
	wps := v.Route.Waypoints
	if v.WaypointIndex >= len(wps)-1 {
		return
	}
	v.Heading = geo.BearingDegrees(wps[v.WaypointIndex], wps[v.WaypointIndex+1])
}

// DemoRoutes are the three New York demo loops the feed ships with.
func DemoRoutes() []Route {
	return []Route{
		{
			Tag:   "manhattan-loop",
			Title: "Manhattan Downtown Loop",
			Waypoints: []domain.Coordinate{
				{Latitude: 40.7128, Longitude: -74.0060},
				{Latitude: 40.7505, Longitude: -73.9934},
				{Latitude: 40.7829, Longitude: -73.9654},
				{Latitude: 40.7614, Longitude: -73.9776},
				{Latitude: 40.7282, Longitude: -73.9942},
				{Latitude: 40.7128, Longitude: -74.0060},
			},
		},
		{
			Tag:   "brooklyn-express",
			Title: "Brooklyn Express",
			Waypoints: []domain.Coordinate{
				{Latitude: 40.6892, Longitude: -73.9442},
				{Latitude: 40.6441, Longitude: -73.9570},
				{Latitude: 40.6195, Longitude: -73.9776},
				{Latitude: 40.5795, Longitude: -73.9707},
				{Latitude: 40.6195, Longitude: -73.9776},
				{Latitude: 40.6441, Longitude: -73.9570},
				{Latitude: 40.6892, Longitude: -73.9442},
			},
		},
		{
			Tag:   "queens-connector",
			Title: "Queens Connector",
			Waypoints: []domain.Coordinate{
				{Latitude: 40.7282, Longitude: -73.7949},
				{Latitude: 40.7505, Longitude: -73.8370},
				{Latitude: 40.7682, Longitude: -73.8370},
				{Latitude: 40.7505, Longitude: -73.8756},
				{Latitude: 40.7282, Longitude: -73.8370},
				{Latitude: 40.7282, Longitude: -73.7949},
			},
		},
	}
}

// SetupFleet distributes vehicles across the given routes with randomized
// starting positions and speeds (20-40 km/h).
func SetupFleet(routes []Route, numVehicles int, rng *rand.Rand) []*Vehicle {
	vehicles := make([]*Vehicle, 0, numVehicles)
	for i := 0; i < numVehicles; i++ {
		route := routes[i%len(routes)]

		startWaypoint := 0
		if len(route.Waypoints) > 1 {
			startWaypoint = rng.Intn(len(route.Waypoints) - 1)
		}

		v := &Vehicle{
			ID:            vehicleID(i + 1),
			Route:         route,
			WaypointIndex: startWaypoint,
			Progress:      rng.Float64(),
			SpeedKmh:      20 + rng.Float64()*20,
		}
		v.updateHeading()
		vehicles = append(vehicles, v)
	}
	return vehicles
}

func vehicleID(n int) string {
	const digits = "0123456789"
	id := []byte("vehicle-000")
	for i := len(id) - 1; n > 0 && i >= len("vehicle-"); i-- {
		id[i] = digits[n%10]
		n /= 10
	}
	return string(id)
}

// Record is the wire shape the ingest boundary expects.
type Record struct {
	Agency      string  `json:"agency"`
	RouteTag    string  `json:"routeTag"`
	VehicleID   string  `json:"vehicleId"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Heading     float64 `json:"heading"`
	SpeedKmHr   float64 `json:"speedKmHr"`
	Timestamp   string  `json:"timestamp"`
	Predictable bool    `json:"predictable"`
}

// Snapshot renders the vehicle's current position as a wire record.
func (v *Vehicle) Snapshot(agency string, ts time.Time) Record {
	pos := v.CurrentPosition()
	return Record{
		Agency:      agency,
		RouteTag:    v.Route.Tag,
		VehicleID:   v.ID,
		Lat:         pos.Latitude,
		Lon:         pos.Longitude,
		Heading:     v.Heading,
		SpeedKmHr:   v.SpeedKmh,
		Timestamp:   ts.UTC().Format(time.RFC3339Nano),
		Predictable: true,
	}
}
