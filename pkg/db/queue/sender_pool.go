package queue

import (
	"fmt"
	"sync"

	"github.com/erain9/tradecache/pkg/messaging"
)

var (
	senderPool   chan *QueueEventSender
	poolInitOnce sync.Once
	maxPoolSize  = 32 // Pool size sized for sustained event bursts
)

// initSenderPool initializes the sender pool
func initSenderPool() {
	poolInitOnce.Do(func() {
		senderPool = make(chan *QueueEventSender, maxPoolSize)
		// Pre-populate the entire pool
		for i := 0; i < maxPoolSize; i++ {
			sender, err := NewQueueEventSender()
			if err != nil {
				fmt.Printf("Error creating sender: %v\n", err)
				continue
			}
			if sender != nil {
				senderPool <- sender
			}
		}
	})
}

// GetSender gets a sender from the pool
func GetSender() *QueueEventSender {
	initSenderPool()

	// Simple non-blocking get from pool
	select {
	case sender := <-senderPool:
		return sender
	default:
		// If pool is empty, something is wrong - log and return nil
		fmt.Printf("Warning: sender pool is empty\n")
		return nil
	}
}

// ReturnSender returns a sender to the pool
func ReturnSender(sender *QueueEventSender) {
	if sender == nil {
		return
	}

	// Simple non-blocking return to pool
	select {
	case senderPool <- sender:
		// Successfully returned to pool
	default:
		// If pool is full, something is wrong - log and close
		fmt.Printf("Warning: sender pool is full\n")
		_ = sender.Close()
	}
}

// SendEvent sends an execution event using a pooled sender
func SendEvent(event *messaging.ExecutionEventMessage) error {
	// Get a sender from the pool
	sender := GetSender()
	if sender == nil {
		return fmt.Errorf("failed to get event sender from pool")
	}

	// Send the event
	err := sender.SendExecutionEvent(event)
	if err != nil {
		fmt.Printf("Error sending event: %v\n", err)
		// If we get a connection error, don't return this sender to the pool
		_ = sender.Close()
		return err
	}

	ReturnSender(sender)
	return nil
}

// PooledEventSender adapts the sender pool to the messaging.EventSender
// interface so stores can publish through pooled producers.
type PooledEventSender struct{}

// SendExecutionEvent sends the event through a pooled producer
func (PooledEventSender) SendExecutionEvent(event *messaging.ExecutionEventMessage) error {
	return SendEvent(event)
}

var _ messaging.EventSender = PooledEventSender{}
