package domain

import "time"

type InsightKind string

const (
	InsightRouteChanged     InsightKind = "ROUTE_CHANGED"
	InsightStoppedOrStarted InsightKind = "STOPPED_OR_STARTED"
	InsightSpeedViolation   InsightKind = "SPEED_VIOLATION"
	InsightZoneEntered      InsightKind = "ZONE_ENTERED"
	InsightZoneExited       InsightKind = "ZONE_EXITED"
	InsightEtaEstimate      InsightKind = "ETA_ESTIMATE"
)

type InsightSeverity string

const (
	SeverityInfo    InsightSeverity = "INFO"
	SeverityWarning InsightSeverity = "WARNING"
)

// Insight is one unit of derived analytical output. Kind selects which of
// the optional fields are meaningful.
type Insight struct {
	Kind      InsightKind     `json:"kind"`
	Severity  InsightSeverity `json:"severity"`
	Agency    string          `json:"agency"`
	VehicleID string          `json:"vehicle_id"`
	Timestamp time.Time       `json:"timestamp"`

	RouteFrom string `json:"route_from,omitempty"` // ROUTE_CHANGED
	RouteTo   string `json:"route_to,omitempty"`   // ROUTE_CHANGED

	Started bool `json:"started,omitempty"` // STOPPED_OR_STARTED

	SpeedKmh float64 `json:"speed_kmh,omitempty"` // STOPPED_OR_STARTED, SPEED_VIOLATION
	LimitKmh float64 `json:"limit_kmh,omitempty"` // SPEED_VIOLATION

	ZoneID     string  `json:"zone_id,omitempty"`     // ZONE_ENTERED, ZONE_EXITED, ETA_ESTIMATE
	EtaMinutes float64 `json:"eta_minutes,omitempty"` // ETA_ESTIMATE
}

func (i Insight) VehicleKey() Key {
	return Key{Agency: i.Agency, VehicleID: i.VehicleID}
}

// RouteKey groups batch statistics by agency and route.
type RouteKey struct {
	Agency   string `json:"agency"`
	RouteTag string `json:"route_tag"`
}

func (k RouteKey) String() string {
	return k.Agency + "/" + k.RouteTag
}

type RouteStats struct {
	VehicleCount int     `json:"vehicle_count"`
	AvgSpeedKmh  float64 `json:"avg_speed_kmh"`
	Congested    bool    `json:"congested"`
}

// BatchSummary is the aggregate outcome of one processed batch.
type BatchSummary struct {
	ProcessedAt      time.Time               `json:"processed_at"`
	TotalEvents      int                     `json:"total_events"`
	DistinctVehicles int                     `json:"distinct_vehicles"`
	PerRoute         map[RouteKey]RouteStats `json:"-"`
	CongestedRoutes  []RouteKey              `json:"congested_routes"`
	InsightCounts    map[InsightKind]int     `json:"insight_counts"`
}
