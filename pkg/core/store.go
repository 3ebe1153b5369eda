package core

import "github.com/rs/zerolog"

// ExecutionStore is the contract the execution subsystem programs against.
// It is implemented by the in-memory backend and the Redis backend with
// identical observable semantics.
//
// Commands assume one serialized execution pipeline per trading session;
// both implementations guard internal state with a read-write lock so that
// concurrent read queries stay safe. Every query returns a defensive copy,
// never a live collection: snapshot-at-call-time, not
// snapshot-at-transaction.
//
// Precondition violations (nil arguments, duplicate identifiers, operating
// on an unregistered strategy) fail fast with ErrNilArgument,
// ErrDuplicateID or ErrNotRegistered. Absence is never an error: loads
// return nil for unknown ids. Soft consistency anomalies are logged,
// counted (Anomalies) and never propagated.
type ExecutionStore interface {
	// AddAccount inserts a new account record. The account id must not
	// already be present.
	AddAccount(account *Account) error

	// AddOrder inserts a new order record and indexes it under the given
	// strategy. A NULL position id is valid: the order is simply omitted
	// from position-scoped indices.
	AddOrder(order *Order, positionID PositionID, strategyID StrategyID) error

	// AddPosition inserts a new position record, places it in the open
	// partition and indexes it using the position's own id, its
	// originating order and the given strategy.
	AddPosition(position *Position, strategyID StrategyID) error

	// UpdateAccount refreshes the persisted copy of the account.
	UpdateAccount(account *Account) error

	// UpdateOrder moves the order between the working and completed
	// partitions according to its state predicates. Orders that are
	// neither working nor completed are left untouched.
	UpdateOrder(order *Order) error

	// UpdatePosition moves the position between the open and closed
	// partitions according to its closed predicate.
	UpdatePosition(position *Position) error

	// UpdateStrategy adds the strategy id to the known-strategies set.
	// Idempotent.
	UpdateStrategy(strategyID StrategyID) error

	// LoadStrategy restores any persisted strategy state. No-op for the
	// in-memory backend. Idempotent.
	LoadStrategy(strategyID StrategyID) error

	// DeleteStrategy removes the strategy from the known-strategies set
	// and drops its strategy-scoped index entries. Orders and positions
	// previously associated with it remain addressable by id.
	DeleteStrategy(strategyID StrategyID) error

	// Reset clears every index and set and re-initializes the primary
	// record store. Must not run concurrently with any other operation.
	Reset() error

	// Flush clears the durable medium. No-op for the in-memory backend.
	Flush() error

	// LoadAccount returns the account or nil when absent.
	LoadAccount(id AccountID) *Account
	// LoadOrder returns the order or nil when absent.
	LoadOrder(id ClientOrderID) *Order
	// LoadPosition returns the position or nil when absent.
	LoadPosition(id PositionID) *Position

	// GetAccount is the read accessor for the account record. Equivalent
	// to LoadAccount for the in-memory backend.
	GetAccount(id AccountID) *Account
	// GetOrder is the read accessor for the order record.
	GetOrder(id ClientOrderID) *Order
	// GetPosition is the read accessor for the position record.
	GetPosition(id PositionID) *Position

	// OrderIDs returns the ids of all orders ever added, optionally
	// restricted to one strategy. The zero StrategyID means no filter; an
	// unknown strategy yields an empty set.
	OrderIDs(strategyID StrategyID) OrderIDSet
	// WorkingOrderIDs returns the ids of currently working orders.
	WorkingOrderIDs(strategyID StrategyID) OrderIDSet
	// CompletedOrderIDs returns the ids of completed orders.
	CompletedOrderIDs(strategyID StrategyID) OrderIDSet

	// PositionIDs returns the ids of all positions ever added.
	PositionIDs(strategyID StrategyID) PositionIDSet
	// OpenPositionIDs returns the ids of open positions.
	OpenPositionIDs(strategyID StrategyID) PositionIDSet
	// ClosedPositionIDs returns the ids of closed positions.
	ClosedPositionIDs(strategyID StrategyID) PositionIDSet

	// StrategyIDs returns the known strategy ids.
	StrategyIDs() StrategyIDSet

	// Orders projects OrderIDs through the primary record store. Ids with
	// no backing record are logged as anomalies and omitted.
	Orders(strategyID StrategyID) map[ClientOrderID]*Order
	// WorkingOrders projects WorkingOrderIDs through the primary store.
	WorkingOrders(strategyID StrategyID) map[ClientOrderID]*Order
	// CompletedOrders projects CompletedOrderIDs through the primary store.
	CompletedOrders(strategyID StrategyID) map[ClientOrderID]*Order

	// Positions projects PositionIDs through the primary record store.
	Positions(strategyID StrategyID) map[PositionID]*Position
	// OpenPositions projects OpenPositionIDs through the primary store.
	OpenPositions(strategyID StrategyID) map[PositionID]*Position
	// ClosedPositions projects ClosedPositionIDs through the primary store.
	ClosedPositions(strategyID StrategyID) map[PositionID]*Position

	// PositionIDForOrder returns the position id indexed for the order, or
	// the NULL id when the order is not indexed to a position.
	PositionIDForOrder(clOrdID ClientOrderID) PositionID

	// OrderExists reports whether the order id was ever added.
	OrderExists(id ClientOrderID) bool
	// IsOrderWorking reports membership in the working partition.
	IsOrderWorking(id ClientOrderID) bool
	// IsOrderCompleted reports membership in the completed partition.
	IsOrderCompleted(id ClientOrderID) bool

	// PositionExists reports whether the position id was ever added.
	PositionExists(id PositionID) bool
	// IsPositionOpen reports membership in the open partition.
	IsPositionOpen(id PositionID) bool
	// IsPositionClosed reports membership in the closed partition.
	IsPositionClosed(id PositionID) bool
	// PositionExistsForOrder reports whether a position record exists for
	// the position id indexed against the order.
	PositionExistsForOrder(clOrdID ClientOrderID) bool
	// PositionIndexedForOrder reports whether the order has an entry in
	// the order-to-position index.
	PositionIndexedForOrder(clOrdID ClientOrderID) bool

	// Anomalies returns the soft anomaly counters recorded so far.
	Anomalies() AnomalyCounts
}

// Count queries are defined purely in terms of the id-set queries so they
// can never drift from the set-based truth.

// OrdersTotalCount returns the number of orders ever added.
func OrdersTotalCount(s ExecutionStore, strategyID StrategyID) int {
	return len(s.OrderIDs(strategyID))
}

// OrdersWorkingCount returns the number of working orders.
func OrdersWorkingCount(s ExecutionStore, strategyID StrategyID) int {
	return len(s.WorkingOrderIDs(strategyID))
}

// OrdersCompletedCount returns the number of completed orders.
func OrdersCompletedCount(s ExecutionStore, strategyID StrategyID) int {
	return len(s.CompletedOrderIDs(strategyID))
}

// PositionsTotalCount returns the number of positions ever added.
func PositionsTotalCount(s ExecutionStore, strategyID StrategyID) int {
	return len(s.PositionIDs(strategyID))
}

// PositionsOpenCount returns the number of open positions.
func PositionsOpenCount(s ExecutionStore, strategyID StrategyID) int {
	return len(s.OpenPositionIDs(strategyID))
}

// PositionsClosedCount returns the number of closed positions.
func PositionsClosedCount(s ExecutionStore, strategyID StrategyID) int {
	return len(s.ClosedPositionIDs(strategyID))
}

// CheckResiduals emits a warning for every order still working and every
// position still open, and returns the residual count. Used at shutdown to
// surface anything not cleanly wound down. Mutates nothing.
func CheckResiduals(s ExecutionStore, logger zerolog.Logger) int {
	residuals := 0

	for id := range s.WorkingOrderIDs("") {
		logger.Warn().
			Str("cl_ord_id", id.String()).
			Msg("residual working order")
		residuals++
	}

	for id := range s.OpenPositionIDs("") {
		logger.Warn().
			Str("position_id", id.String()).
			Msg("residual open position")
		residuals++
	}

	return residuals
}

// SymbolPositionCounts tallies cached positions per instrument symbol,
// open and closed alike. This is the one query with no backing index; it
// scans every position record and is O(n) in total position count.
func SymbolPositionCounts(s ExecutionStore) map[string]int {
	counts := make(map[string]int)
	for _, position := range s.Positions("") {
		counts[position.Symbol()]++
	}
	return counts
}
