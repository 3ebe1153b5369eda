package queue

import (
	"github.com/IBM/sarama"
)

// mockProducer records produced messages. The embedded interface satisfies
// the transactional surface of sarama.SyncProducer that the sender never
// touches.
type mockProducer struct {
	sarama.SyncProducer
	sentMessages []*sarama.ProducerMessage
}

func (m *mockProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	m.sentMessages = append(m.sentMessages, msg)
	return 0, 0, nil
}

func (m *mockProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	m.sentMessages = append(m.sentMessages, msgs...)
	return nil
}

func (m *mockProducer) Close() error {
	return nil
}
