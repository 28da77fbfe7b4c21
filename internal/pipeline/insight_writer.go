package pipeline

import (
	"context"
	"log"
	"time"

	"fleet-insight/internal/domain"
	"fleet-insight/internal/metrics"
	"fleet-insight/internal/store"
)

// InsightWriter drains the insight channel into TimescaleDB in batches.
type InsightWriter struct {
	ch        <-chan domain.Insight
	db        *store.TimescaleStore
	batchSize int
	flushMS   int
}

func NewInsightWriter(
	ch <-chan domain.Insight,
	db *store.TimescaleStore,
	batchSize int,
	flushMS int,
) *InsightWriter {
	return &InsightWriter{
		ch:        ch,
		db:        db,
		batchSize: batchSize,
		flushMS:   flushMS,
	}
}

func (w *InsightWriter) Run(ctx context.Context) {
	batch := make([]domain.Insight, 0, w.batchSize)
	ticker := time.NewTicker(time.Duration(w.flushMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case ins, ok := <-w.ch:
			if !ok {
				if len(batch) > 0 {
					w.flush(ctx, batch)
				}
				return
			}
			batch = append(batch, ins)
			if len(batch) >= w.batchSize {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			if len(batch) > 0 {
				w.flush(ctx, batch)
			}
			return
		}
	}
}

func (w *InsightWriter) flush(ctx context.Context, batch []domain.Insight) {
	err := w.db.BatchInsertInsights(ctx, batch)
	if err != nil {
		log.Printf("insight write failed (batch=%d), retrying: %v", len(batch), err)
		time.Sleep(500 * time.Millisecond)
		err = w.db.BatchInsertInsights(ctx, batch)
		if err != nil {
			log.Printf("insight write permanently failed (batch=%d): %v", len(batch), err)
			metrics.SinkWriteFailure.Add(int64(len(batch)))
			return
		}
	}
	metrics.SinkWriteSuccess.Add(int64(len(batch)))
}

// SummaryWriter persists one row per processed batch. Summaries are low
// rate, so no batching.
type SummaryWriter struct {
	ch <-chan domain.BatchSummary
	db *store.TimescaleStore
}

func NewSummaryWriter(ch <-chan domain.BatchSummary, db *store.TimescaleStore) *SummaryWriter {
	return &SummaryWriter{ch: ch, db: db}
}

func (w *SummaryWriter) Run(ctx context.Context) {
	for {
		select {
		case s, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.db.InsertBatchSummary(ctx, s); err != nil {
				log.Printf("summary write failed: %v", err)
				metrics.SinkWriteFailure.Add(1)
				continue
			}
			metrics.SinkWriteSuccess.Add(1)

		case <-ctx.Done():
			return
		}
	}
}
