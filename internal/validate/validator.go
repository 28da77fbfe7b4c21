// Package validate turns raw telemetry payloads into canonical position
// events. Validation is pure: a malformed record is permanently invalid and
// is rejected without side effects or retries.
package validate

import (
	"encoding/json"
	"math"
	"time"

	"fleet-insight/internal/domain"
)

// rawRecord mirrors the wire shape produced by the vehicle feed.
type rawRecord struct {
	Agency      string   `json:"agency"`
	RouteTag    string   `json:"routeTag"`
	VehicleID   string   `json:"vehicleId"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Heading     float64  `json:"heading"`
	SpeedKmHr   *float64 `json:"speedKmHr"`
	Timestamp   string   `json:"timestamp"`
	Predictable *bool    `json:"predictable"`
}

// Validate decodes and checks one raw record. The returned event is
// canonical: heading normalized into [0,360) and predictable defaulted to
// true when absent.
func Validate(payload []byte) (domain.PositionEvent, error) {
	var raw rawRecord
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.PositionEvent{}, domain.ValidationError{Field: "payload", Reason: "not a JSON object: " + err.Error()}
	}
	return validateRecord(&raw)
}

// ValidateBatch decodes a batch payload, either a JSON array of records or
// a single record object.
func ValidateBatch(payload []byte) ([][]byte, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err == nil {
		out := make([][]byte, len(records))
		for i, r := range records {
			out[i] = []byte(r)
		}
		return out, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, domain.ValidationError{Field: "batch", Reason: "neither a JSON array nor an object"}
	}
	return [][]byte{payload}, nil
}

func validateRecord(raw *rawRecord) (domain.PositionEvent, error) {
	if raw.Agency == "" {
		return domain.PositionEvent{}, domain.ValidationError{Field: "agency", Reason: "required"}
	}
	if raw.VehicleID == "" {
		return domain.PositionEvent{}, domain.ValidationError{Field: "vehicleId", Reason: "required"}
	}
	if raw.Lat == nil {
		return domain.PositionEvent{}, domain.ValidationError{Field: "lat", Reason: "required"}
	}
	if raw.Lon == nil {
		return domain.PositionEvent{}, domain.ValidationError{Field: "lon", Reason: "required"}
	}
	if raw.SpeedKmHr == nil {
		return domain.PositionEvent{}, domain.ValidationError{Field: "speedKmHr", Reason: "required"}
	}

	lat, lon, speed := *raw.Lat, *raw.Lon, *raw.SpeedKmHr
	if !isFinite(lat) || lat < -90 || lat > 90 {
		return domain.PositionEvent{}, domain.ValidationError{Field: "lat", Reason: "must be between -90 and 90"}
	}
	if !isFinite(lon) || lon < -180 || lon > 180 {
		return domain.PositionEvent{}, domain.ValidationError{Field: "lon", Reason: "must be between -180 and 180"}
	}
	if !isFinite(speed) || speed < 0 {
		return domain.PositionEvent{}, domain.ValidationError{Field: "speedKmHr", Reason: "must be >= 0"}
	}
	if !isFinite(raw.Heading) {
		return domain.PositionEvent{}, domain.ValidationError{Field: "heading", Reason: "must be finite"}
	}

	if raw.Timestamp == "" {
		return domain.PositionEvent{}, domain.ValidationError{Field: "timestamp", Reason: "required"}
	}
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return domain.PositionEvent{}, domain.ValidationError{Field: "timestamp", Reason: "unparsable: " + err.Error()}
	}

	predictable := true
	if raw.Predictable != nil {
		predictable = *raw.Predictable
	}

	return domain.PositionEvent{
		Agency:         raw.Agency,
		VehicleID:      raw.VehicleID,
		RouteTag:       raw.RouteTag,
		Position:       domain.Coordinate{Latitude: lat, Longitude: lon},
		HeadingDegrees: normalizeHeading(raw.Heading),
		SpeedKmh:       speed,
		Timestamp:      ts,
		Predictable:    predictable,
	}, nil
}

// parseTimestamp accepts RFC3339 with or without sub-second precision, and
// the zone-less ISO form Python's isoformat() emits for naive datetimes.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02T15:04:05.999999999", s)
}

func normalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
