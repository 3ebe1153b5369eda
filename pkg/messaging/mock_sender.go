package messaging

// MockEventSender records sent events for testing.
type MockEventSender struct {
	Sent []*ExecutionEventMessage
}

// NewMockEventSender creates a new MockEventSender.
func NewMockEventSender() *MockEventSender {
	return &MockEventSender{}
}

// SendExecutionEvent appends the event to the Sent slice.
func (m *MockEventSender) SendExecutionEvent(event *ExecutionEventMessage) error {
	m.Sent = append(m.Sent, event)
	return nil
}

// Close does nothing.
func (m *MockEventSender) Close() error {
	return nil
}

// Ensure MockEventSender implements EventSender
var _ EventSender = (*MockEventSender)(nil)
