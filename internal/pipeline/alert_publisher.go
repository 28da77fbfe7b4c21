package pipeline

import (
	"context"
	"encoding/json"
	"log"

	"fleet-insight/internal/domain"
	"fleet-insight/internal/publisher"
	"fleet-insight/internal/store"
)

// AlertPublisher forwards insights to the message bus and the Redis pub/sub
// channel. Warning-severity insights repeat on every event while the
// condition holds, so they pass through a Redis dedup window first.
type AlertPublisher struct {
	ch     <-chan domain.Insight
	redis  *store.RedisStore
	rabbit *publisher.InsightPublisher
}

func NewAlertPublisher(
	ch <-chan domain.Insight,
	redis *store.RedisStore,
	rabbit *publisher.InsightPublisher,
) *AlertPublisher {
	return &AlertPublisher{ch: ch, redis: redis, rabbit: rabbit}
}

func (p *AlertPublisher) Run(ctx context.Context) {
	for {
		select {
		case ins, ok := <-p.ch:
			if !ok {
				return
			}
			p.publish(context.Background(), ins)

		case <-ctx.Done():
			return
		}
	}
}

func (p *AlertPublisher) publish(ctx context.Context, ins domain.Insight) {
	if ins.Severity == domain.SeverityWarning && p.redis != nil {
		isDuplicate, err := p.redis.CheckInsightDedup(ctx, ins.VehicleKey(), ins.Kind)
		if err != nil {
			log.Printf("insight dedup check failed for %s/%s: %v", ins.VehicleKey(), ins.Kind, err)
		} else if isDuplicate {
			return
		}
	}

	if p.rabbit != nil {
		if err := p.rabbit.Publish(ctx, ins); err != nil {
			log.Printf("insight publish failed for %s: %v", ins.VehicleKey(), err)
			return
		}
	}

	if p.redis != nil {
		payload, err := json.Marshal(ins)
		if err != nil {
			log.Printf("insight marshal failed for %s: %v", ins.VehicleKey(), err)
			return
		}
		if err := p.redis.PublishInsight(ctx, ins.Agency, payload); err != nil {
			log.Printf("insight channel publish failed for %s: %v", ins.VehicleKey(), err)
		}

		if ins.Severity == domain.SeverityWarning {
			if err := p.redis.SetInsightDedup(ctx, ins.VehicleKey(), ins.Kind); err != nil {
				log.Printf("insight dedup set failed for %s/%s: %v", ins.VehicleKey(), ins.Kind, err)
			}
		}
	}
}
