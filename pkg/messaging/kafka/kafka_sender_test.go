package kafka

import (
	"testing"
	"time"

	"github.com/erain9/tradecache/pkg/messaging"
	"github.com/erain9/tradecache/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKafkaAddr = "localhost:9092"

func TestKafkaEventSender_SendExecutionEvent(t *testing.T) {
	testutil.SkipIfKafkaUnavailable(t, testKafkaAddr)

	sender, err := NewKafkaEventSender(testKafkaAddr, "tradecache-test")
	require.NoError(t, err)
	defer sender.Close()

	err = sender.SendExecutionEvent(&messaging.ExecutionEventMessage{
		Kind:       messaging.EventOrderAdded,
		ClOrdID:    "O-1",
		StrategyID: "S-001",
		Symbol:     "AUD/USD",
		Timestamp:  time.Now(),
	})
	assert.NoError(t, err)
}

func TestKafkaEventSender_ImplementsEventSender(t *testing.T) {
	impl, err := NewKafkaEventSender(testKafkaAddr, "tradecache-test")
	require.NoError(t, err)
	defer impl.Close()

	var sender messaging.EventSender = impl
	require.NotNil(t, sender)
}
