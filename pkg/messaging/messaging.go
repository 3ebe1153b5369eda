package messaging

import "time"

// EventSender defines an interface for publishing execution events.
// This keeps the store backends decoupled from specific implementations
// like Kafka in the queue package.
type EventSender interface {
	SendExecutionEvent(event *ExecutionEventMessage) error
}

// Execution event kinds
const (
	EventOrderAdded      = "order_added"
	EventOrderWorking    = "order_working"
	EventOrderCompleted  = "order_completed"
	EventPositionOpened  = "position_opened"
	EventPositionClosed  = "position_closed"
	EventStrategyDeleted = "strategy_deleted"
)

// ExecutionEventMessage represents a single execution-state change to be
// published to downstream consumers.
type ExecutionEventMessage struct {
	Kind       string    `json:"kind"`
	ClOrdID    string    `json:"clOrdID,omitempty"`
	PositionID string    `json:"positionID,omitempty"`
	StrategyID string    `json:"strategyID,omitempty"`
	Symbol     string    `json:"symbol,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
