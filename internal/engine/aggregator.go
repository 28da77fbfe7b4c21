package engine

import (
	"sort"
	"time"

	"fleet-insight/internal/domain"
)

// Aggregator computes per-batch summary statistics.
type Aggregator struct {
	CongestionThresholdKmh float64
}

// Summarize groups the batch by (agency, routeTag) and reports vehicle
// counts, mean speeds and congested routes. An empty batch yields a
// zero-valued summary.
func (a Aggregator) Summarize(events []domain.PositionEvent, insights []domain.Insight) domain.BatchSummary {
	summary := domain.BatchSummary{
		ProcessedAt:   time.Now().UTC(),
		TotalEvents:   len(events),
		PerRoute:      make(map[domain.RouteKey]domain.RouteStats),
		InsightCounts: make(map[domain.InsightKind]int),
	}

	type group struct {
		vehicles map[string]struct{}
		speedSum float64
		count    int
	}

	groups := make(map[domain.RouteKey]*group)
	vehicles := make(map[domain.Key]struct{})

	for _, evt := range events {
		vehicles[evt.Key()] = struct{}{}

		rk := domain.RouteKey{Agency: evt.Agency, RouteTag: evt.RouteTag}
		g, ok := groups[rk]
		if !ok {
			g = &group{vehicles: make(map[string]struct{})}
			groups[rk] = g
		}
		g.vehicles[evt.VehicleID] = struct{}{}
		g.speedSum += evt.SpeedKmh
		g.count++
	}

	summary.DistinctVehicles = len(vehicles)

	for rk, g := range groups {
		stats := domain.RouteStats{
			VehicleCount: len(g.vehicles),
			AvgSpeedKmh:  g.speedSum / float64(g.count),
		}
		stats.Congested = stats.AvgSpeedKmh < a.CongestionThresholdKmh
		summary.PerRoute[rk] = stats

		if stats.Congested {
			summary.CongestedRoutes = append(summary.CongestedRoutes, rk)
		}
	}

	sort.Slice(summary.CongestedRoutes, func(i, j int) bool {
		return summary.CongestedRoutes[i].String() < summary.CongestedRoutes[j].String()
	})

	for _, ins := range insights {
		summary.InsightCounts[ins.Kind]++
	}

	return summary
}
