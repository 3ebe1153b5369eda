package redis

import (
	"context"
	"testing"

	"github.com/erain9/tradecache/pkg/core"
	"github.com/erain9/tradecache/pkg/messaging"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestRedis initializes a Redis client for testing.
// It assumes Redis is running on localhost:6379.
// Flushes the DB before returning the client.
func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0, // Use default DB
	})
	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		t.Skipf("Skipping Redis tests: Cannot connect to Redis (%v)", err)
	}
	err = client.FlushDB(context.Background()).Err()
	if err != nil {
		t.Fatalf("Failed to flush Redis DB: %v", err)
	}
	return client
}

func setupTestStore(t *testing.T) *RedisStore {
	client := setupTestRedis(t)
	return NewRedisStore(client, "TESTER-000", zap.NewNop())
}

func newTestOrder(t *testing.T, id string) *core.Order {
	order, err := core.NewOrder(core.ClientOrderID(id), "AUD/USD", core.Buy, fpdecimal.FromFloat(100000.0), fpdecimal.FromFloat(0.80010))
	require.NoError(t, err)
	return order
}

func newTestPosition(t *testing.T, id, fromOrder string) *core.Position {
	position, err := core.NewPosition(core.PositionID(id), core.ClientOrderID(fromOrder), "AUD/USD", fpdecimal.FromFloat(100000.0))
	require.NoError(t, err)
	return position
}

func TestNewRedisStore(t *testing.T) {
	store := setupTestStore(t)

	assert.NotNil(t, store)
	assert.Equal(t, "Trader-TESTER-000", store.keyTrader)
	assert.Equal(t, "Trader-TESTER-000:Accounts:", store.keyAccounts)
	assert.Equal(t, "Trader-TESTER-000:Orders:", store.keyOrders)
	assert.Equal(t, "Trader-TESTER-000:Positions:", store.keyPositions)
	assert.Equal(t, "Trader-TESTER-000:Index:OrderPosition", store.keyIndexOrderPosition)
	assert.Equal(t, "Trader-TESTER-000:Index:Orders:Working", store.keyIndexOrdersWorking)
	assert.Equal(t, "Trader-TESTER-000:Index:Positions:Closed", store.keyIndexPositionsClosed)
}

func TestRedisStore_AddLoadAccount(t *testing.T) {
	store := setupTestStore(t)

	account := core.NewAccount("SIM-001", "USD", fpdecimal.FromFloat(1000000.0))
	err := store.AddAccount(account)
	require.NoError(t, err)

	loaded := store.LoadAccount("SIM-001")
	require.NotNil(t, loaded)
	assert.Equal(t, account.ID(), loaded.ID())
	assert.Equal(t, account.Currency(), loaded.Currency())
	assert.True(t, account.Balance().Equal(loaded.Balance()))

	// Duplicate insert must be rejected
	err = store.AddAccount(account)
	assert.ErrorIs(t, err, core.ErrDuplicateID)

	// Absent account loads as nil
	assert.Nil(t, store.LoadAccount("SIM-404"))
}

func TestRedisStore_AddOrder(t *testing.T) {
	store := setupTestStore(t)

	order := newTestOrder(t, "O-19700101-000-001-001-1")
	err := store.AddOrder(order, core.PositionID("P-1"), core.StrategyID("S-001"))
	require.NoError(t, err)

	loaded := store.LoadOrder(order.ClOrdID())
	require.NotNil(t, loaded)
	assert.Equal(t, order.ClOrdID(), loaded.ClOrdID())
	assert.Equal(t, order.Symbol(), loaded.Symbol())

	assert.True(t, store.OrderExists(order.ClOrdID()))
	assert.False(t, store.IsOrderWorking(order.ClOrdID()))
	assert.False(t, store.IsOrderCompleted(order.ClOrdID()))
	assert.Equal(t, core.PositionID("P-1"), store.PositionIDForOrder(order.ClOrdID()))
	assert.True(t, store.PositionIndexedForOrder(order.ClOrdID()))

	// Same id again hits the fail-fast duplication check
	dup := newTestOrder(t, "O-19700101-000-001-001-1")
	err = store.AddOrder(dup, core.PositionIDNull, core.StrategyID("S-001"))
	assert.ErrorIs(t, err, core.ErrDuplicateID)
}

func TestRedisStore_AddOrderNullPosition(t *testing.T) {
	store := setupTestStore(t)

	order := newTestOrder(t, "O-19700101-000-001-001-1")
	err := store.AddOrder(order, core.PositionIDNull, core.StrategyID("S-001"))
	require.NoError(t, err)

	assert.True(t, store.OrderExists(order.ClOrdID()))
	assert.False(t, store.PositionIndexedForOrder(order.ClOrdID()))
	assert.Equal(t, core.PositionIDNull, store.PositionIDForOrder(order.ClOrdID()))
	assert.False(t, store.PositionExistsForOrder(order.ClOrdID()))

	ids := store.OrderIDs(core.StrategyID("S-001"))
	assert.True(t, ids.Contains(order.ClOrdID()))
}

func TestRedisStore_AddPosition(t *testing.T) {
	store := setupTestStore(t)

	position := newTestPosition(t, "P-1", "O-1")
	err := store.AddPosition(position, core.StrategyID("S-001"))
	require.NoError(t, err)

	loaded := store.LoadPosition(position.ID())
	require.NotNil(t, loaded)
	assert.Equal(t, position.ID(), loaded.ID())
	assert.Equal(t, position.FromOrder(), loaded.FromOrder())

	assert.True(t, store.PositionExists(position.ID()))
	assert.True(t, store.IsPositionOpen(position.ID()))
	assert.False(t, store.IsPositionClosed(position.ID()))
	assert.Equal(t, core.PositionID("P-1"), store.PositionIDForOrder("O-1"))
	assert.True(t, store.PositionExistsForOrder("O-1"))

	err = store.AddPosition(position, core.StrategyID("S-001"))
	assert.ErrorIs(t, err, core.ErrDuplicateID)
}

func TestRedisStore_UpdateOrderPartitions(t *testing.T) {
	store := setupTestStore(t)

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, core.PositionIDNull, core.StrategyID("S-001")))

	order.SetStatus(core.StatusWorking)
	require.NoError(t, store.UpdateOrder(order))
	assert.True(t, store.IsOrderWorking(order.ClOrdID()))
	assert.False(t, store.IsOrderCompleted(order.ClOrdID()))

	order.SetStatus(core.StatusFilled)
	require.NoError(t, store.UpdateOrder(order))
	assert.False(t, store.IsOrderWorking(order.ClOrdID()))
	assert.True(t, store.IsOrderCompleted(order.ClOrdID()))

	// Status survives the round trip through the record store
	loaded := store.LoadOrder(order.ClOrdID())
	require.NotNil(t, loaded)
	assert.Equal(t, core.StatusFilled, loaded.Status())
}

func TestRedisStore_UpdatePositionPartitions(t *testing.T) {
	store := setupTestStore(t)

	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, core.StrategyID("S-001")))
	assert.True(t, store.IsPositionOpen(position.ID()))

	position.SetQuantity(fpdecimal.Zero)
	require.NoError(t, store.UpdatePosition(position))
	assert.False(t, store.IsPositionOpen(position.ID()))
	assert.True(t, store.IsPositionClosed(position.ID()))

	// Reopening moves the position back to the open partition
	position.SetQuantity(fpdecimal.FromFloat(50000.0))
	require.NoError(t, store.UpdatePosition(position))
	assert.True(t, store.IsPositionOpen(position.ID()))
	assert.False(t, store.IsPositionClosed(position.ID()))
}

func TestRedisStore_StrategyFilteredQueries(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpdateStrategy("S-001"))
	require.NoError(t, store.UpdateStrategy("S-002"))

	order1 := newTestOrder(t, "O-1")
	order2 := newTestOrder(t, "O-2")
	require.NoError(t, store.AddOrder(order1, "P-1", "S-001"))
	require.NoError(t, store.AddOrder(order2, "P-2", "S-002"))

	position1 := newTestPosition(t, "P-1", "O-1")
	position2 := newTestPosition(t, "P-2", "O-2")
	require.NoError(t, store.AddPosition(position1, "S-001"))
	require.NoError(t, store.AddPosition(position2, "S-002"))

	// Unfiltered queries see everything
	assert.Len(t, store.OrderIDs(""), 2)
	assert.Len(t, store.PositionIDs(""), 2)

	// Filtered queries intersect with the strategy scope
	ids := store.OrderIDs("S-001")
	assert.Len(t, ids, 1)
	assert.True(t, ids.Contains("O-1"))

	posIDs := store.OpenPositionIDs("S-002")
	assert.Len(t, posIDs, 1)
	assert.True(t, posIDs.Contains("P-2"))

	// Unknown strategy yields the empty set
	assert.Len(t, store.OrderIDs("S-404"), 0)
	assert.Len(t, store.PositionIDs("S-404"), 0)

	// Count queries agree with the id sets
	assert.Equal(t, 2, core.OrdersTotalCount(store, ""))
	assert.Equal(t, 1, core.OrdersTotalCount(store, "S-001"))
	assert.Equal(t, 2, core.PositionsOpenCount(store, ""))
	assert.Equal(t, 1, core.PositionsOpenCount(store, "S-002"))
}

func TestRedisStore_Projections(t *testing.T) {
	store := setupTestStore(t)

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, "P-1", "S-001"))

	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))

	orders := store.Orders("")
	require.Len(t, orders, 1)
	assert.Equal(t, order.ClOrdID(), orders[order.ClOrdID()].ClOrdID())

	positions := store.OpenPositions("S-001")
	require.Len(t, positions, 1)
	assert.Equal(t, position.ID(), positions[position.ID()].ID())
	assert.Equal(t, core.AnomalyCounts{}, store.Anomalies())
}

func TestRedisStore_MissingRecordAnomaly(t *testing.T) {
	store := setupTestStore(t)

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, core.PositionIDNull, "S-001"))

	// Delete the primary record behind the index's back
	require.NoError(t, store.client.Del(context.Background(), store.orderKey("O-1")).Err())

	orders := store.Orders("")
	assert.Len(t, orders, 0)
	assert.Equal(t, 1, store.Anomalies().MissingRecords)
}

func TestRedisStore_IndexConflictAnomaly(t *testing.T) {
	store := setupTestStore(t)

	position1 := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position1, "S-001"))

	// Same originating order indexed to a second position: the first
	// binding wins and the conflict is counted
	position2 := newTestPosition(t, "P-2", "O-1")
	require.NoError(t, store.AddPosition(position2, "S-001"))

	assert.Equal(t, core.PositionID("P-1"), store.PositionIDForOrder("O-1"))
	assert.Equal(t, 1, store.Anomalies().IndexConflicts)
}

func TestRedisStore_DeleteStrategy(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpdateStrategy("S-001"))

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, "P-1", "S-001"))
	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))

	require.NoError(t, store.DeleteStrategy("S-001"))

	// Strategy and its scoped indices are gone
	assert.Len(t, store.StrategyIDs(), 0)
	assert.Len(t, store.OrderIDs("S-001"), 0)
	assert.Len(t, store.PositionIDs("S-001"), 0)

	// Records remain addressable by id
	assert.NotNil(t, store.LoadOrder("O-1"))
	assert.NotNil(t, store.LoadPosition("P-1"))
	assert.True(t, store.OrderExists("O-1"))

	// Deleting an unregistered strategy fails fast
	err := store.DeleteStrategy("S-404")
	assert.ErrorIs(t, err, core.ErrNotRegistered)
}

func TestRedisStore_Reset(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpdateStrategy("S-001"))
	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, "P-1", "S-001"))
	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))

	require.NoError(t, store.Reset())

	assert.Nil(t, store.LoadOrder("O-1"))
	assert.Nil(t, store.LoadPosition("P-1"))
	assert.Len(t, store.OrderIDs(""), 0)
	assert.Len(t, store.PositionIDs(""), 0)
	assert.Len(t, store.StrategyIDs(), 0)
	assert.Equal(t, core.AnomalyCounts{}, store.Anomalies())
}

func TestRedisStore_TraderScoping(t *testing.T) {
	client := setupTestRedis(t)
	storeA := NewRedisStore(client, "TESTER-000", zap.NewNop())
	storeB := NewRedisStore(client, "TESTER-001", zap.NewNop())

	order := newTestOrder(t, "O-1")
	require.NoError(t, storeA.AddOrder(order, core.PositionIDNull, "S-001"))

	// Both traders share the instance but not the keyspace
	assert.True(t, storeA.OrderExists("O-1"))
	assert.False(t, storeB.OrderExists("O-1"))

	// Reset on one trader leaves the other untouched
	other := newTestOrder(t, "O-2")
	require.NoError(t, storeB.AddOrder(other, core.PositionIDNull, "S-001"))
	require.NoError(t, storeA.Reset())
	assert.False(t, storeA.OrderExists("O-1"))
	assert.True(t, storeB.OrderExists("O-2"))
}

func TestRedisStore_ResetSparesPrefixedTrader(t *testing.T) {
	client := setupTestRedis(t)
	storeA := NewRedisStore(client, "TESTER-000", zap.NewNop())
	storeB := NewRedisStore(client, "TESTER-0001", zap.NewNop())

	order := newTestOrder(t, "O-1")
	require.NoError(t, storeA.AddOrder(order, core.PositionIDNull, "S-001"))
	other := newTestOrder(t, "O-2")
	require.NoError(t, storeB.AddOrder(other, core.PositionIDNull, "S-001"))

	// "Trader-TESTER-000" is a prefix of "Trader-TESTER-0001"; Reset must
	// only match keys under its own trader segment.
	require.NoError(t, storeA.Reset())
	assert.False(t, storeA.OrderExists("O-1"))
	assert.True(t, storeB.OrderExists("O-2"))
	assert.NotNil(t, storeB.LoadOrder("O-2"))
}

func TestRedisStore_Events(t *testing.T) {
	store := setupTestStore(t)
	sender := messaging.NewMockEventSender()
	store.SetEventSender(sender)

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, "P-1", "S-001"))

	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))

	position.SetQuantity(fpdecimal.Zero)
	require.NoError(t, store.UpdatePosition(position))

	require.Len(t, sender.Sent, 3)
	assert.Equal(t, messaging.EventOrderAdded, sender.Sent[0].Kind)
	assert.Equal(t, messaging.EventPositionOpened, sender.Sent[1].Kind)
	assert.Equal(t, messaging.EventPositionClosed, sender.Sent[2].Kind)
}

func TestRedisStore_CheckResiduals(t *testing.T) {
	store := setupTestStore(t)

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, core.PositionIDNull, "S-001"))
	order.SetStatus(core.StatusWorking)
	require.NoError(t, store.UpdateOrder(order))

	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))

	residuals := core.CheckResiduals(store, zerolog.Nop())
	assert.Equal(t, 2, residuals)
}
