package pipeline

import (
	"context"
	"log"
	"time"

	"fleet-insight/internal/domain"
	"fleet-insight/internal/store"
)

// LivePublisher pushes the latest vehicle state to Redis for dashboards.
type LivePublisher struct {
	ch    <-chan domain.VehicleState
	redis *store.RedisStore
}

func NewLivePublisher(ch <-chan domain.VehicleState, redis *store.RedisStore) *LivePublisher {
	return &LivePublisher{ch: ch, redis: redis}
}

func (p *LivePublisher) Run(ctx context.Context) {
	batch := make([]domain.VehicleState, 0, 100) // Redis is fast, fixed batch fine
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case st, ok := <-p.ch:
			if !ok {
				p.flushBatch(ctx, batch)
				return
			}
			batch = append(batch, st)
			if len(batch) >= 100 {
				p.flushBatch(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				p.flushBatch(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			p.flushBatch(ctx, batch)
			return
		}
	}
}

func (p *LivePublisher) flushBatch(ctx context.Context, batch []domain.VehicleState) {
	for _, st := range batch {
		if err := p.redis.PublishVehicleState(ctx, st); err != nil {
			log.Printf("live state publish failed for %s: %v", st.Key, err)
		}
	}
}
