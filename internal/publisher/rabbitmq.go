// Package publisher forwards insights to the RabbitMQ fanout exchange
// downstream consumers subscribe to.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"fleet-insight/internal/domain"
)

const (
	exchangeName = "fleet.insights"
	queueName    = "vehicle_insights"
)

type InsightPublisher struct {
	ch *amqp.Channel
}

func NewInsightPublisher(conn *amqp.Connection) (*InsightPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queueName, "", exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &InsightPublisher{ch: ch}, nil
}

func (p *InsightPublisher) Publish(ctx context.Context, ins domain.Insight) error {
	body, err := json.Marshal(ins)
	if err != nil {
		return fmt.Errorf("marshal insight: %w", err)
	}

	return p.ch.PublishWithContext(ctx, exchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Headers: amqp.Table{
			"kind":     string(ins.Kind),
			"severity": string(ins.Severity),
			"agency":   ins.Agency,
		},
		Body: body,
	})
}

func (p *InsightPublisher) Close() error {
	return p.ch.Close()
}
