package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes ledger events to a single topic.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher builds a publisher for brokers; topic defaults to DefaultTopic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("events: kafka brokers required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}), nil
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish implements Publisher. Events of one year or entry share a key so
// they land on the same partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, event LedgerEvent) error {
	if p == nil || p.writer == nil {
		return errors.New("events: publisher not initialised")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(partitionKey(event)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
		Time: event.OccurredAt,
	})
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func partitionKey(event LedgerEvent) string {
	switch {
	case event.Year != 0:
		return "year-" + strconv.Itoa(event.Year)
	case event.EntryID != 0:
		return "entry-" + strconv.FormatInt(event.EntryID, 10)
	case event.AccountCode != "":
		return "account-" + event.AccountCode
	default:
		return event.Type
	}
}
