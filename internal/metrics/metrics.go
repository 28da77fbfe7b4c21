package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	EventsReceived   atomic.Int64
	EventsRejected   atomic.Int64
	EventsStale      atomic.Int64
	EventsFailed     atomic.Int64
	InsightsEmitted  atomic.Int64
	BatchesProcessed atomic.Int64
	VehiclesEvicted  atomic.Int64

	InsightChannelDrops atomic.Int64
	AlertChannelDrops   atomic.Int64
	SummaryChannelDrops atomic.Int64
	LiveChannelDrops    atomic.Int64

	SinkWriteSuccess atomic.Int64
	SinkWriteFailure atomic.Int64
)

func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "engine_events_received_total %d\n", EventsReceived.Load())
	fmt.Fprintf(w, "engine_events_rejected_total %d\n", EventsRejected.Load())
	fmt.Fprintf(w, "engine_events_stale_total %d\n", EventsStale.Load())
	fmt.Fprintf(w, "engine_events_failed_total %d\n", EventsFailed.Load())
	fmt.Fprintf(w, "engine_insights_emitted_total %d\n", InsightsEmitted.Load())
	fmt.Fprintf(w, "engine_batches_processed_total %d\n", BatchesProcessed.Load())
	fmt.Fprintf(w, "engine_vehicles_evicted_total %d\n", VehiclesEvicted.Load())
	fmt.Fprintf(w, "engine_insight_channel_drops_total %d\n", InsightChannelDrops.Load())
	fmt.Fprintf(w, "engine_alert_channel_drops_total %d\n", AlertChannelDrops.Load())
	fmt.Fprintf(w, "engine_summary_channel_drops_total %d\n", SummaryChannelDrops.Load())
	fmt.Fprintf(w, "engine_live_channel_drops_total %d\n", LiveChannelDrops.Load())
	fmt.Fprintf(w, "engine_sink_write_success_total %d\n", SinkWriteSuccess.Load())
	fmt.Fprintf(w, "engine_sink_write_failure_total %d\n", SinkWriteFailure.Load())
}
