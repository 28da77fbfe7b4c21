// Package engine runs the per-event analytics pipeline: state update,
// state-change detection, geofence transitions, speed flagging and ETA
// estimation, plus per-batch aggregation.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"fleet-insight/internal/domain"
	"fleet-insight/internal/geofence"
	"fleet-insight/internal/metrics"
	"fleet-insight/internal/state"
	"fleet-insight/internal/validate"
)

// Options carries the analytics thresholds. Zero values are not defaulted
// here; config validation guarantees sane numbers before the engine exists.
type Options struct {
	StopSpeedKmh      float64
	SpeedViolationKmh float64
	EtaMinMinutes     float64
	EtaMaxMinutes     float64
	Workers           int
}

// Emitter receives insights in applied-event order for each vehicle. It is
// called inside the vehicle's critical section and must not block.
type Emitter func(domain.Insight)

type Engine struct {
	store      *state.Store
	zones      *geofence.Index
	opts       Options
	aggregator Aggregator
	emit       Emitter
}

func New(store *state.Store, zones *geofence.Index, opts Options) *Engine {
	return &Engine{
		store:      store,
		zones:      zones,
		opts:       opts,
		aggregator: Aggregator{CongestionThresholdKmh: 15},
	}
}

// WithAggregator overrides the batch aggregator settings.
func (e *Engine) WithAggregator(a Aggregator) *Engine {
	e.aggregator = a
	return e
}

// WithEmitter sets the per-insight hook used for live fan-out.
func (e *Engine) WithEmitter(emit Emitter) *Engine {
	e.emit = emit
	return e
}

// Store exposes read access to vehicle state for the transport layer.
func (e *Engine) Store() *state.Store {
	return e.store
}

// ProcessEvent applies one validated event and returns the insights it
// produced. A stale event (timestamp not advancing the vehicle's stored
// state) produces none and reports stale = true.
func (e *Engine) ProcessEvent(evt domain.PositionEvent) (insights []domain.Insight, stale bool) {
	res := e.store.Upsert(evt, func(prev, cur *domain.VehicleState) {
		insights = e.analyze(evt, prev, cur)
		for _, ins := range insights {
			if e.emit != nil {
				e.emit(ins)
			}
		}
	})
	return insights, res.Stale
}

// analyze runs inside the vehicle's critical section: prev is the snapshot
// before evt, cur the live entry whose ActiveZones it replaces.
func (e *Engine) analyze(evt domain.PositionEvent, prev, cur *domain.VehicleState) []domain.Insight {
	var out []domain.Insight

	base := domain.Insight{
		Agency:    evt.Agency,
		VehicleID: evt.VehicleID,
		Timestamp: evt.Timestamp,
	}

	if prev != nil && prev.CurrentRoute != cur.CurrentRoute {
		ins := base
		ins.Kind = domain.InsightRouteChanged
		ins.Severity = domain.SeverityInfo
		ins.RouteFrom = prev.CurrentRoute
		ins.RouteTo = cur.CurrentRoute
		out = append(out, ins)
	}

	if prev != nil {
		wasStopped := prev.CurrentSpeedKmh <= e.opts.StopSpeedKmh
		isStopped := cur.CurrentSpeedKmh <= e.opts.StopSpeedKmh
		if wasStopped != isStopped {
			ins := base
			ins.Kind = domain.InsightStoppedOrStarted
			ins.Severity = domain.SeverityInfo
			ins.Started = wasStopped && !isStopped
			ins.SpeedKmh = cur.CurrentSpeedKmh
			out = append(out, ins)
		}
	}

	if cur.CurrentSpeedKmh > e.opts.SpeedViolationKmh {
		ins := base
		ins.Kind = domain.InsightSpeedViolation
		ins.Severity = domain.SeverityWarning
		ins.SpeedKmh = cur.CurrentSpeedKmh
		ins.LimitKmh = e.opts.SpeedViolationKmh
		out = append(out, ins)
	}

	out = append(out, e.zoneTransitions(base, cur)...)

	if eta, ok := e.estimateEta(base, prev, cur); ok {
		out = append(out, eta)
	}

	return out
}

// zoneTransitions replaces cur.ActiveZones with the zones covering the new
// position and reports the entries and exits the replacement implies.
func (e *Engine) zoneTransitions(base domain.Insight, cur *domain.VehicleState) []domain.Insight {
	newZones := e.zones.ZonesContaining(cur.CurrentPosition)

	var out []domain.Insight
	active := make(map[string]struct{}, len(newZones))
	for _, id := range newZones {
		active[id] = struct{}{}
		if !cur.InZone(id) {
			ins := base
			ins.Kind = domain.InsightZoneEntered
			ins.Severity = domain.SeverityInfo
			ins.ZoneID = id
			out = append(out, ins)
		}
	}
	for id := range cur.ActiveZones {
		if _, still := active[id]; !still {
			ins := base
			ins.Kind = domain.InsightZoneExited
			ins.Severity = domain.SeverityInfo
			ins.ZoneID = id
			out = append(out, ins)
		}
	}

	cur.ActiveZones = active
	return out
}

// estimateEta is a coarse straight-line estimate to the nearest zone, not a
// routed prediction. Estimates outside the configured window are dropped:
// below it the vehicle has effectively arrived, above it the number is
// noise.
func (e *Engine) estimateEta(base domain.Insight, prev, cur *domain.VehicleState) (domain.Insight, bool) {
	if prev == nil {
		return domain.Insight{}, false
	}
	elapsed := cur.LastEventTime.Sub(prev.LastEventTime)
	if elapsed <= 0 || cur.CurrentSpeedKmh <= e.opts.StopSpeedKmh {
		return domain.Insight{}, false
	}

	zoneID, distanceKm, ok := e.zones.Nearest(cur.CurrentPosition)
	if !ok {
		return domain.Insight{}, false
	}

	minutes := distanceKm / cur.CurrentSpeedKmh * 60
	if minutes <= e.opts.EtaMinMinutes || minutes >= e.opts.EtaMaxMinutes {
		return domain.Insight{}, false
	}

	ins := base
	ins.Kind = domain.InsightEtaEstimate
	ins.Severity = domain.SeverityInfo
	ins.ZoneID = zoneID
	ins.EtaMinutes = minutes
	return ins, true
}

// processEventSafe isolates a per-event failure: a panic while analyzing
// one event is converted to an error so the rest of the batch continues.
func (e *Engine) processEventSafe(evt domain.PositionEvent) (insights []domain.Insight, stale bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.ProcessingError{Key: evt.Key(), Cause: fmt.Errorf("%v", r)}
		}
	}()
	insights, stale = e.ProcessEvent(evt)
	return insights, stale, nil
}

// BatchResult is the outcome of one delivered batch.
type BatchResult struct {
	Events   []domain.PositionEvent
	Insights []domain.Insight
	Summary  domain.BatchSummary
	Rejected int
	Stale    int
	Failed   int
}

// ProcessBatch validates every record, fans the valid events out to a
// bounded worker group, and aggregates the outcome. One bad record never
// fails the batch. Cancelling ctx stops admitting new events; in-flight
// events always run to completion so no partial state mutation is left
// behind.
func (e *Engine) ProcessBatch(ctx context.Context, payloads [][]byte) BatchResult {
	var result BatchResult

	metrics.EventsReceived.Add(int64(len(payloads)))

	events := make([]domain.PositionEvent, 0, len(payloads))
	for _, payload := range payloads {
		evt, err := validate.Validate(payload)
		if err != nil {
			result.Rejected++
			metrics.EventsRejected.Add(1)
			log.Printf("rejected record: %v", err)
			continue
		}
		events = append(events, evt)
	}
	result.Events = events

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.opts.Workers)

	for _, evt := range events {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			insights, stale, err := e.processEventSafe(evt)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				metrics.EventsFailed.Add(1)
				log.Printf("event failed: %v", err)
			case stale:
				result.Stale++
				metrics.EventsStale.Add(1)
			default:
				result.Insights = append(result.Insights, insights...)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are counted above

	metrics.InsightsEmitted.Add(int64(len(result.Insights)))
	metrics.BatchesProcessed.Add(1)

	result.Summary = e.aggregator.Summarize(events, result.Insights)
	return result
}
