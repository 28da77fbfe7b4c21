package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-insight/internal/domain"
)

func TestSummarize_CongestedRoute(t *testing.T) {
	a := Aggregator{CongestionThresholdKmh: 15}

	events := make([]domain.PositionEvent, 0, 6)
	for i := 0; i < 6; i++ {
		evt := testEvent("v1", "slow-route", farAway, 10, baseTime)
		evt.VehicleID = []string{"v1", "v2", "v3"}[i%3]
		events = append(events, evt)
	}

	summary := a.Summarize(events, nil)

	rk := domain.RouteKey{Agency: "demo-transit", RouteTag: "slow-route"}
	stats, ok := summary.PerRoute[rk]
	require.True(t, ok)
	assert.Equal(t, 3, stats.VehicleCount)
	assert.InDelta(t, 10.0, stats.AvgSpeedKmh, 1e-9)
	assert.True(t, stats.Congested)
	assert.Equal(t, []domain.RouteKey{rk}, summary.CongestedRoutes)

	assert.Equal(t, 6, summary.TotalEvents)
	assert.Equal(t, 3, summary.DistinctVehicles)
	assert.False(t, summary.ProcessedAt.IsZero())
}

func TestSummarize_NotCongestedAtMixedSpeeds(t *testing.T) {
	a := Aggregator{CongestionThresholdKmh: 15}

	events := []domain.PositionEvent{
		testEvent("v1", "r1", farAway, 20, baseTime),
		testEvent("v2", "r1", farAway, 20, baseTime),
	}

	summary := a.Summarize(events, nil)
	stats := summary.PerRoute[domain.RouteKey{Agency: "demo-transit", RouteTag: "r1"}]
	assert.InDelta(t, 20.0, stats.AvgSpeedKmh, 1e-9)
	assert.False(t, stats.Congested)
	assert.Empty(t, summary.CongestedRoutes)
}

func TestSummarize_AvgExactlyAtThresholdNotCongested(t *testing.T) {
	a := Aggregator{CongestionThresholdKmh: 15}

	summary := a.Summarize([]domain.PositionEvent{
		testEvent("v1", "r1", farAway, 15, baseTime),
	}, nil)

	stats := summary.PerRoute[domain.RouteKey{Agency: "demo-transit", RouteTag: "r1"}]
	assert.False(t, stats.Congested)
}

func TestSummarize_GroupsByAgencyAndRoute(t *testing.T) {
	a := Aggregator{CongestionThresholdKmh: 15}

	eventFor := func(agency, route, vehicle string, speed float64) domain.PositionEvent {
		evt := testEvent(vehicle, route, farAway, speed, baseTime)
		evt.Agency = agency
		return evt
	}

	summary := a.Summarize([]domain.PositionEvent{
		eventFor("agency-a", "r1", "v1", 10),
		eventFor("agency-b", "r1", "v1", 40),
		eventFor("agency-a", "r2", "v2", 40),
	}, nil)

	require.Len(t, summary.PerRoute, 3)
	assert.Equal(t, 3, summary.DistinctVehicles, "same vehicle id under another agency is distinct")
	assert.Equal(t, []domain.RouteKey{{Agency: "agency-a", RouteTag: "r1"}}, summary.CongestedRoutes)
}

func TestSummarize_CongestedRoutesSorted(t *testing.T) {
	a := Aggregator{CongestionThresholdKmh: 15}

	summary := a.Summarize([]domain.PositionEvent{
		testEvent("v1", "zulu", farAway, 5, baseTime),
		testEvent("v2", "alpha", farAway, 5, baseTime),
	}, nil)

	assert.Equal(t, []domain.RouteKey{
		{Agency: "demo-transit", RouteTag: "alpha"},
		{Agency: "demo-transit", RouteTag: "zulu"},
	}, summary.CongestedRoutes)
}

func TestSummarize_InsightCounts(t *testing.T) {
	a := Aggregator{CongestionThresholdKmh: 15}

	insights := []domain.Insight{
		{Kind: domain.InsightSpeedViolation},
		{Kind: domain.InsightSpeedViolation},
		{Kind: domain.InsightZoneEntered},
	}

	summary := a.Summarize(nil, insights)
	assert.Equal(t, 2, summary.InsightCounts[domain.InsightSpeedViolation])
	assert.Equal(t, 1, summary.InsightCounts[domain.InsightZoneEntered])
	assert.Zero(t, summary.InsightCounts[domain.InsightEtaEstimate])
}

func TestSummarize_EmptyBatch(t *testing.T) {
	a := Aggregator{CongestionThresholdKmh: 15}

	summary := a.Summarize(nil, nil)
	assert.Zero(t, summary.TotalEvents)
	assert.Zero(t, summary.DistinctVehicles)
	assert.Empty(t, summary.PerRoute)
	assert.Empty(t, summary.CongestedRoutes)
	assert.Empty(t, summary.InsightCounts)
}
