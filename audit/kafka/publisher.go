// Package kafka provides audit.Publisher writing records to Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nspcc-dev/savings-contract/audit"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic is a topic records are written to by default.
const DefaultTopic = "savings_records"

// Publisher writes records as JSON messages keyed by the account, so the
// movements of one account keep their order within a partition.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher constructs Publisher writing to the topic of the given brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish implements audit.Publisher.
func (p *Publisher) Publish(ctx context.Context, r audit.Record) error {
	msg, err := message(r)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("write message to %s: %w", p.writer.Topic, err)
	}

	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func message(r audit.Record) (kafka.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode record: %w", err)
	}

	return kafka.Message{
		Key:   []byte(r.Account),
		Value: data,
		Time:  r.ObservedAt,
	}, nil
}

var _ audit.Publisher = (*Publisher)(nil)
