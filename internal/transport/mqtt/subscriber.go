// Package mqtt is the broker-side ingest adapter. The broker delivers
// at-least-once (QoS 1): duplicates and reordering are expected, and the
// engine's staleness handling absorbs them.
package mqtt

import (
	"context"
	"log"

	paho "github.com/eclipse/paho.mqtt.golang"

	"fleet-insight/internal/engine"
	"fleet-insight/internal/validate"
)

type Subscriber struct {
	client  paho.Client
	topic   string
	engine  *engine.Engine
	onBatch func(engine.BatchResult)
}

func NewSubscriber(client paho.Client, topic string, eng *engine.Engine, onBatch func(engine.BatchResult)) *Subscriber {
	return &Subscriber{
		client:  client,
		topic:   topic,
		engine:  eng,
		onBatch: onBatch,
	}
}

func (s *Subscriber) Start() error {
	token := s.client.Subscribe(s.topic, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *Subscriber) Stop() {
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
}

// handleMessage processes one delivered batch. A payload that is not even
// a JSON container is dropped whole; anything else degrades per record.
func (s *Subscriber) handleMessage(_ paho.Client, msg paho.Message) {
	payloads, err := validate.ValidateBatch(msg.Payload())
	if err != nil {
		log.Printf("invalid batch on %s: %v", msg.Topic(), err)
		return
	}

	result := s.engine.ProcessBatch(context.Background(), payloads)
	if s.onBatch != nil {
		s.onBatch(result)
	}
}
