// Package feed mirrors the audit trail onto a Kafka topic so downstream
// consumers (reporting, compliance exports) can follow request lifecycles
// without polling the API.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"eventdesk/internal/history"
	"eventdesk/internal/platform/kafka"
)

// KafkaPublisher publishes history entries keyed by request id, so all
// entries for one request land on the same partition in order.
type KafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, entry history.Entry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	key := []byte(entry.RequestID.String())
	return p.producer.Produce(ctx, key, value)
}
