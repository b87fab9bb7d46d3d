// internal/events/kafka.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
)

type Kafka struct {
	writer *kafkaGo.Writer
}

// NewKafka keeps a single writer per process. Messages are keyed by resource id so
// every change of one request or allocation lands on the same partition.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		writer: &kafkaGo.Writer{
			Addr:         kafkaGo.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkaGo.Hash{},
			RequiredAcks: kafkaGo.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, event Event) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, msg)
}

// toMessage keys by resource so every event of one request lands on the same partition.
func toMessage(event Event) (kafkaGo.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafkaGo.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return kafkaGo.Message{
		Key:   []byte(event.ResourceID.String()),
		Value: payload,
		Headers: []kafkaGo.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}, nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
