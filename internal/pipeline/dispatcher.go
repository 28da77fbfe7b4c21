// Package pipeline fans engine output out to the configured sinks. Sends
// are non-blocking: a slow sink drops and counts rather than stalling the
// analytics path.
package pipeline

import (
	"fleet-insight/internal/domain"
	"fleet-insight/internal/metrics"
)

type Dispatcher struct {
	DBChan      chan domain.Insight
	AlertChan   chan domain.Insight
	LiveChan    chan domain.VehicleState
	SummaryChan chan domain.BatchSummary
}

func NewDispatcher(dbSize, alertSize, liveSize, summarySize int) *Dispatcher {
	return &Dispatcher{
		DBChan:      make(chan domain.Insight, dbSize),
		AlertChan:   make(chan domain.Insight, alertSize),
		LiveChan:    make(chan domain.VehicleState, liveSize),
		SummaryChan: make(chan domain.BatchSummary, summarySize),
	}
}

func (d *Dispatcher) DispatchInsight(ins domain.Insight) {
	select {
	case d.DBChan <- ins:
	default:
		metrics.InsightChannelDrops.Add(1)
	}

	select {
	case d.AlertChan <- ins:
	default:
		metrics.AlertChannelDrops.Add(1)
	}
}

func (d *Dispatcher) DispatchState(st domain.VehicleState) {
	select {
	case d.LiveChan <- st:
	default:
		metrics.LiveChannelDrops.Add(1)
	}
}

func (d *Dispatcher) DispatchSummary(s domain.BatchSummary) {
	select {
	case d.SummaryChan <- s:
	default:
		metrics.SummaryChannelDrops.Add(1)
	}
}

// Close releases the sink workers; call once ingestion has stopped.
func (d *Dispatcher) Close() {
	close(d.DBChan)
	close(d.AlertChan)
	close(d.LiveChan)
	close(d.SummaryChan)
}
