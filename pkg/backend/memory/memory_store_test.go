package memory

import (
	"fmt"
	"testing"

	"github.com/erain9/tradecache/pkg/core"
	"github.com/erain9/tradecache/pkg/messaging"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(zerolog.Nop())
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

func TestNewMemoryStore(t *testing.T) {
	store := newTestStore()
	assert.NotNil(t, store)
	assert.NotNil(t, store.orders)
	assert.NotNil(t, store.positions)
	assert.NotNil(t, store.accounts)
	assert.NotNil(t, store.strategies)
	assert.NotNil(t, store.indexOrders)
	assert.NotNil(t, store.indexPositions)
}

func TestMemoryStore_AccountOperations(t *testing.T) {
	store := newTestStore()

	account := core.NewAccount("SIM-001", "USD", fpdecimal.FromFloat(1000000.0))
	require.NoError(t, store.AddAccount(account))

	loaded := store.LoadAccount("SIM-001")
	require.NotNil(t, loaded)
	assert.Equal(t, core.AccountID("SIM-001"), loaded.ID())
	assert.Equal(t, "USD", loaded.Currency())

	// Updates replace the stored record
	account.SetBalance(fpdecimal.FromFloat(999000.0))
	require.NoError(t, store.UpdateAccount(account))
	assert.True(t, store.LoadAccount("SIM-001").Balance().Equal(fpdecimal.FromFloat(999000.0)))

	// Duplicates fail fast, absences load as nil
	assert.ErrorIs(t, store.AddAccount(account), core.ErrDuplicateID)
	assert.Nil(t, store.LoadAccount("SIM-404"))
}

func TestMemoryStore_AddOrder(t *testing.T) {
	store := newTestStore()

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, "P-1", "S-001"))

	loaded := store.LoadOrder("O-1")
	require.NotNil(t, loaded)
	assert.Equal(t, order.ClOrdID(), loaded.ClOrdID())

	assert.True(t, store.OrderExists("O-1"))
	assert.False(t, store.IsOrderWorking("O-1"))
	assert.False(t, store.IsOrderCompleted("O-1"))
	assert.Equal(t, core.PositionID("P-1"), store.PositionIDForOrder("O-1"))
	assert.True(t, store.PositionIndexedForOrder("O-1"))

	// Duplicate inserts are rejected before any index is touched
	dup := newTestOrder(t, "O-1")
	assert.ErrorIs(t, store.AddOrder(dup, core.PositionIDNull, "S-001"), core.ErrDuplicateID)
	assert.Len(t, store.OrderIDs(""), 1)
}

func TestMemoryStore_AddOrderValidation(t *testing.T) {
	store := newTestStore()

	err := store.AddOrder(nil, core.PositionIDNull, "S-001")
	assert.ErrorIs(t, err, core.ErrNilArgument)

	order := newTestOrder(t, "O-1")
	err = store.AddOrder(order, core.PositionIDNull, "")
	assert.ErrorIs(t, err, core.ErrNilArgument)
}

func TestMemoryStore_AddOrderNullPosition(t *testing.T) {
	store := newTestStore()

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, core.PositionIDNull, "S-001"))

	// The order is indexed to its strategy but to no position
	assert.True(t, store.OrderExists("O-1"))
	assert.False(t, store.PositionIndexedForOrder("O-1"))
	assert.False(t, store.PositionExistsForOrder("O-1"))
	assert.Equal(t, core.PositionIDNull, store.PositionIDForOrder("O-1"))
	assert.True(t, store.OrderIDs("S-001").Contains("O-1"))
}

func TestMemoryStore_AddPosition(t *testing.T) {
	store := newTestStore()

	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))

	loaded := store.LoadPosition("P-1")
	require.NotNil(t, loaded)
	assert.Equal(t, position.ID(), loaded.ID())

	// New positions are open
	assert.True(t, store.PositionExists("P-1"))
	assert.True(t, store.IsPositionOpen("P-1"))
	assert.False(t, store.IsPositionClosed("P-1"))

	// Adding a position back-fills the order-position index
	assert.Equal(t, core.PositionID("P-1"), store.PositionIDForOrder("O-1"))
	assert.True(t, store.PositionExistsForOrder("O-1"))

	assert.ErrorIs(t, store.AddPosition(position, "S-001"), core.ErrDuplicateID)
}

func TestMemoryStore_OrderPartitionTransitions(t *testing.T) {
	store := newTestStore()

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, core.PositionIDNull, "S-001"))

	order.SetStatus(core.StatusWorking)
	require.NoError(t, store.UpdateOrder(order))
	assert.True(t, store.IsOrderWorking("O-1"))
	assert.False(t, store.IsOrderCompleted("O-1"))
	assert.True(t, store.WorkingOrderIDs("").Contains("O-1"))

	order.SetStatus(core.StatusPartiallyFilled)
	require.NoError(t, store.UpdateOrder(order))
	assert.True(t, store.IsOrderWorking("O-1"))

	order.SetStatus(core.StatusFilled)
	require.NoError(t, store.UpdateOrder(order))
	assert.False(t, store.IsOrderWorking("O-1"))
	assert.True(t, store.IsOrderCompleted("O-1"))
	assert.True(t, store.CompletedOrderIDs("").Contains("O-1"))

	// The two partitions never overlap
	working := store.WorkingOrderIDs("")
	completed := store.CompletedOrderIDs("")
	for id := range working {
		assert.False(t, completed.Contains(id))
	}
}

func TestMemoryStore_PositionPartitionTransitions(t *testing.T) {
	store := newTestStore()

	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))
	assert.True(t, store.IsPositionOpen("P-1"))

	// Flat quantity closes
	position.SetQuantity(fpdecimal.Zero)
	require.NoError(t, store.UpdatePosition(position))
	assert.False(t, store.IsPositionOpen("P-1"))
	assert.True(t, store.IsPositionClosed("P-1"))

	// Non-flat quantity reopens
	position.SetQuantity(fpdecimal.FromFloat(50000.0))
	require.NoError(t, store.UpdatePosition(position))
	assert.True(t, store.IsPositionOpen("P-1"))
	assert.False(t, store.IsPositionClosed("P-1"))
}

func TestMemoryStore_StrategyRegistration(t *testing.T) {
	store := newTestStore()

	require.NoError(t, store.UpdateStrategy("S-001"))
	require.NoError(t, store.UpdateStrategy("S-002"))
	require.NoError(t, store.UpdateStrategy("S-001")) // idempotent

	ids := store.StrategyIDs()
	assert.Len(t, ids, 2)
	assert.True(t, ids.Contains("S-001"))
	assert.True(t, ids.Contains("S-002"))

	require.NoError(t, store.LoadStrategy("S-001"))
	assert.ErrorIs(t, store.LoadStrategy(""), core.ErrNilArgument)
}

func TestMemoryStore_StrategyFilteredQueries(t *testing.T) {
	store := newTestStore()

	for i, strategyID := range []core.StrategyID{"S-001", "S-001", "S-002"} {
		order := newTestOrder(t, fmt.Sprintf("O-%d", i+1))
		positionID := core.PositionID(fmt.Sprintf("P-%d", i+1))
		require.NoError(t, store.AddOrder(order, positionID, strategyID))

		position := newTestPosition(t, string(positionID), string(order.ClOrdID()))
		require.NoError(t, store.AddPosition(position, strategyID))
	}

	// The zero strategy id means no filter
	assert.Len(t, store.OrderIDs(""), 3)
	assert.Len(t, store.PositionIDs(""), 3)

	// Filters intersect with the strategy scope
	assert.Len(t, store.OrderIDs("S-001"), 2)
	assert.Len(t, store.OrderIDs("S-002"), 1)
	assert.Len(t, store.OpenPositionIDs("S-001"), 2)

	// Unknown strategies yield the empty set, not an error
	assert.Len(t, store.OrderIDs("S-404"), 0)
	assert.Len(t, store.ClosedPositionIDs("S-404"), 0)
}

func TestMemoryStore_CountConsistency(t *testing.T) {
	store := newTestStore()

	for i := 0; i < 5; i++ {
		order := newTestOrder(t, fmt.Sprintf("O-%d", i))
		require.NoError(t, store.AddOrder(order, core.PositionIDNull, "S-001"))
		if i < 3 {
			order.SetStatus(core.StatusWorking)
			require.NoError(t, store.UpdateOrder(order))
		}
	}

	// Count queries agree with the cardinality of the id-set queries
	assert.Equal(t, len(store.OrderIDs("")), core.OrdersTotalCount(store, ""))
	assert.Equal(t, len(store.WorkingOrderIDs("")), core.OrdersWorkingCount(store, ""))
	assert.Equal(t, len(store.CompletedOrderIDs("")), core.OrdersCompletedCount(store, ""))
	assert.Equal(t, 5, core.OrdersTotalCount(store, "S-001"))
	assert.Equal(t, 3, core.OrdersWorkingCount(store, "S-001"))
	assert.Equal(t, 0, core.OrdersCompletedCount(store, ""))
}

func TestMemoryStore_Projections(t *testing.T) {
	store := newTestStore()

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, "P-1", "S-001"))
	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))

	orders := store.Orders("S-001")
	require.Len(t, orders, 1)
	assert.Equal(t, core.ClientOrderID("O-1"), orders["O-1"].ClOrdID())

	positions := store.OpenPositions("")
	require.Len(t, positions, 1)
	assert.Equal(t, core.PositionID("P-1"), positions["P-1"].ID())
	assert.Equal(t, core.AnomalyCounts{}, store.Anomalies())
}

func TestMemoryStore_ProjectionCopyOnRead(t *testing.T) {
	store := newTestStore()

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, core.PositionIDNull, "S-001"))

	// Mutating a projected record must not leak into the store
	projected := store.Orders("")["O-1"]
	projected.SetStatus(core.StatusFilled)

	assert.Equal(t, core.StatusInitialized, store.LoadOrder("O-1").Status())
	assert.False(t, store.IsOrderCompleted("O-1"))

	// Id-set copies are independent too
	ids := store.OrderIDs("")
	ids.Remove("O-1")
	assert.True(t, store.OrderIDs("").Contains("O-1"))
}

func TestMemoryStore_IndexConflictAnomaly(t *testing.T) {
	store := newTestStore()

	position1 := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position1, "S-001"))

	// A second position claiming the same originating order: the first
	// binding wins, the conflict is counted, the command still succeeds
	position2 := newTestPosition(t, "P-2", "O-1")
	require.NoError(t, store.AddPosition(position2, "S-001"))

	assert.Equal(t, core.PositionID("P-1"), store.PositionIDForOrder("O-1"))
	assert.Equal(t, 1, store.Anomalies().IndexConflicts)
	assert.True(t, store.PositionExists("P-2"))
}

func TestMemoryStore_MissingRecordAnomaly(t *testing.T) {
	store := newTestStore()

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, core.PositionIDNull, "S-001"))

	// Remove the primary record behind the index's back
	store.Lock()
	delete(store.orders, "O-1")
	store.Unlock()

	orders := store.Orders("")
	assert.Len(t, orders, 0)
	assert.Equal(t, 1, store.Anomalies().MissingRecords)
}

func TestMemoryStore_DeleteStrategy(t *testing.T) {
	store := newTestStore()

	require.NoError(t, store.UpdateStrategy("S-001"))
	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, "P-1", "S-001"))
	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))

	require.NoError(t, store.DeleteStrategy("S-001"))

	// Strategy-scoped views are emptied
	assert.Len(t, store.StrategyIDs(), 0)
	assert.Len(t, store.OrderIDs("S-001"), 0)
	assert.Len(t, store.PositionIDs("S-001"), 0)

	// Records and unscoped indices survive
	assert.NotNil(t, store.LoadOrder("O-1"))
	assert.NotNil(t, store.LoadPosition("P-1"))
	assert.True(t, store.OrderExists("O-1"))
	assert.True(t, store.IsPositionOpen("P-1"))

	assert.ErrorIs(t, store.DeleteStrategy("S-404"), core.ErrNotRegistered)
}

func TestMemoryStore_Reset(t *testing.T) {
	store := newTestStore()

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

	// The store is usable again after a reset
	fresh := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(fresh, core.PositionIDNull, "S-001"))
	assert.True(t, store.OrderExists("O-1"))
}

func TestMemoryStore_Events(t *testing.T) {
	store := newTestStore()
	sender := messaging.NewMockEventSender()
	store.SetEventSender(sender)

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, "P-1", "S-001"))

	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))

	order.SetStatus(core.StatusWorking)
	require.NoError(t, store.UpdateOrder(order))

	position.SetQuantity(fpdecimal.Zero)
	require.NoError(t, store.UpdatePosition(position))

	order.SetStatus(core.StatusFilled)
	require.NoError(t, store.UpdateOrder(order))

	require.Len(t, sender.Sent, 5)
	assert.Equal(t, messaging.EventOrderAdded, sender.Sent[0].Kind)
	assert.Equal(t, messaging.EventPositionOpened, sender.Sent[1].Kind)
	assert.Equal(t, messaging.EventOrderWorking, sender.Sent[2].Kind)
	assert.Equal(t, messaging.EventPositionClosed, sender.Sent[3].Kind)
	assert.Equal(t, messaging.EventOrderCompleted, sender.Sent[4].Kind)
}

func TestMemoryStore_SymbolPositionCountsIncludesClosed(t *testing.T) {
	store := newTestStore()

	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))
	assert.Equal(t, map[string]int{"AUD/USD": 1}, core.SymbolPositionCounts(store))

	position.SetQuantity(fpdecimal.Zero)
	require.NoError(t, store.UpdatePosition(position))
	assert.Equal(t, map[string]int{"AUD/USD": 1}, core.SymbolPositionCounts(store))
}

func TestMemoryStore_TradingDayLifecycle(t *testing.T) {
	store := newTestStore()

	// Morning: register state
	account := core.NewAccount("SIM-001", "USD", fpdecimal.FromFloat(1000000.0))
	require.NoError(t, store.AddAccount(account))
	require.NoError(t, store.UpdateStrategy("S-001"))

	order := newTestOrder(t, "O-1")
	require.NoError(t, store.AddOrder(order, "P-1", "S-001"))
	order.SetStatus(core.StatusWorking)
	require.NoError(t, store.UpdateOrder(order))

	position := newTestPosition(t, "P-1", "O-1")
	require.NoError(t, store.AddPosition(position, "S-001"))

	// Mid-session: residuals are the working order plus the open position
	assert.Equal(t, 2, core.CheckResiduals(store, zerolog.Nop()))
	assert.Equal(t, map[string]int{"AUD/USD": 1}, core.SymbolPositionCounts(store))

	// Close of day: fill the order, flatten the position
	order.SetStatus(core.StatusFilled)
	require.NoError(t, store.UpdateOrder(order))
	position.SetQuantity(fpdecimal.Zero)
	require.NoError(t, store.UpdatePosition(position))

	assert.Equal(t, 0, core.CheckResiduals(store, zerolog.Nop()))
	// The flattened position stays cached, so the symbol tally still sees it.
	assert.Equal(t, map[string]int{"AUD/USD": 1}, core.SymbolPositionCounts(store))

	// Flush is a no-op for this backend
	require.NoError(t, store.Flush())
	assert.True(t, store.OrderExists("O-1"))
}
