package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fleet-insight/internal/domain"
	"fleet-insight/internal/metrics"
)

func TestDispatchInsight_NonBlocking(t *testing.T) {
	d := NewDispatcher(1, 1, 1, 1)

	before := metrics.InsightChannelDrops.Load()
	alertsBefore := metrics.AlertChannelDrops.Load()

	// Fill both insight channels, then overflow them. The second dispatch
	// must return immediately and count a drop per full channel.
	d.DispatchInsight(domain.Insight{Kind: domain.InsightSpeedViolation})
	d.DispatchInsight(domain.Insight{Kind: domain.InsightZoneEntered})

	assert.Equal(t, before+1, metrics.InsightChannelDrops.Load())
	assert.Equal(t, alertsBefore+1, metrics.AlertChannelDrops.Load())

	delivered := <-d.DBChan
	assert.Equal(t, domain.InsightSpeedViolation, delivered.Kind, "first dispatch kept, overflow dropped")
}

func TestDispatchState_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(1, 1, 1, 1)

	before := metrics.LiveChannelDrops.Load()
	d.DispatchState(domain.VehicleState{})
	d.DispatchState(domain.VehicleState{})

	assert.Equal(t, before+1, metrics.LiveChannelDrops.Load())
	assert.Len(t, d.LiveChan, 1)
}

func TestDispatchSummary_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(1, 1, 1, 1)

	before := metrics.SummaryChannelDrops.Load()
	d.DispatchSummary(domain.BatchSummary{TotalEvents: 1})
	d.DispatchSummary(domain.BatchSummary{TotalEvents: 2})

	assert.Equal(t, before+1, metrics.SummaryChannelDrops.Load())

	kept := <-d.SummaryChan
	assert.Equal(t, 1, kept.TotalEvents)
}

func TestClose_ReleasesConsumers(t *testing.T) {
	d := NewDispatcher(1, 1, 1, 1)
	d.Close()

	_, open := <-d.DBChan
	assert.False(t, open)
	_, open = <-d.SummaryChan
	assert.False(t, open)
}
