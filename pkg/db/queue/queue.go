package queue

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/erain9/tradecache/pkg/messaging"
)

var (
	brokerList = "localhost:9092"
	topic      = "execution-events"
)

const maxRetry = 5

// newSyncProducer is swapped out in tests
var newSyncProducer = sarama.NewSyncProducer

// SetBrokerList overrides the Kafka broker address used by new senders
func SetBrokerList(addr string) {
	brokerList = addr
}

// SetTopic overrides the Kafka topic used by new senders
func SetTopic(name string) {
	topic = name
}

// QueueEventSender implements the EventSender interface for sending
// execution events to Kafka via a sarama sync producer
type QueueEventSender struct {
	producer sarama.SyncProducer
}

// NewQueueEventSender creates a sender with a connected sync producer
func NewQueueEventSender() (*QueueEventSender, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Retry.Max = maxRetry
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Successes = true

	producer, err := newSyncProducer([]string{brokerList}, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %v", err)
	}

	return &QueueEventSender{producer: producer}, nil
}

// SendExecutionEvent sends the event to the Kafka queue
func (q *QueueEventSender) SendExecutionEvent(event *messaging.ExecutionEventMessage) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal execution event: %v", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(eventKey(event)),
		Value: sarama.ByteEncoder(payload),
	}

	_, _, err = q.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to Kafka: %v", err)
	}

	return nil
}

// Close shuts down the underlying producer
func (q *QueueEventSender) Close() error {
	return q.producer.Close()
}

// eventKey keys partitioning by order id, falling back to position id so
// events for the same record land on the same partition
func eventKey(event *messaging.ExecutionEventMessage) string {
	if event.ClOrdID != "" {
		return event.ClOrdID
	}
	return event.PositionID
}

// Ensure QueueEventSender implements EventSender
var _ messaging.EventSender = (*QueueEventSender)(nil)
