package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erain9/tradecache/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

// KafkaEventSender implements EventSender using Kafka
type KafkaEventSender struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaEventSender creates a new Kafka event sender
func NewKafkaEventSender(brokerAddr, topic string) (*KafkaEventSender, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerAddr),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &KafkaEventSender{
		writer: writer,
		topic:  topic,
	}, nil
}

// SendExecutionEvent sends an execution event to Kafka
func (k *KafkaEventSender) SendExecutionEvent(event *messaging.ExecutionEventMessage) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal execution event: %w", err)
	}

	// Key by order id so one order's events land on one partition
	key := event.ClOrdID
	if key == "" {
		key = event.PositionID
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka writer
func (k *KafkaEventSender) Close() error {
	return k.writer.Close()
}

// Ensure KafkaEventSender implements EventSender
var _ messaging.EventSender = (*KafkaEventSender)(nil)
