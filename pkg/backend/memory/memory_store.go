package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/erain9/tradecache/pkg/core"
	"github.com/erain9/tradecache/pkg/messaging"
	"github.com/rs/zerolog"
)

// MemoryStore implements the ExecutionStore contract with in-memory storage.
// Commands take the write lock; id-set queries take the read lock only long
// enough to copy. Projected queries take the write lock because they may
// record a missing-record anomaly. Records are cloned on both write and read
// so callers never share memory with the store.
type MemoryStore struct {
	sync.RWMutex
	logger zerolog.Logger
	sender messaging.EventSender

	accounts  map[core.AccountID]*core.Account
	orders    map[core.ClientOrderID]*core.Order
	positions map[core.PositionID]*core.Position

	strategies core.StrategyIDSet

	indexOrderPosition     map[core.ClientOrderID]core.PositionID
	indexOrderStrategy     map[core.ClientOrderID]core.StrategyID
	indexPositionStrategy  map[core.PositionID]core.StrategyID
	indexPositionOrders    map[core.PositionID]core.OrderIDSet
	indexStrategyOrders    map[core.StrategyID]core.OrderIDSet
	indexStrategyPositions map[core.StrategyID]core.PositionIDSet

	indexOrders          core.OrderIDSet
	indexOrdersWorking   core.OrderIDSet
	indexOrdersCompleted core.OrderIDSet

	indexPositions       core.PositionIDSet
	indexPositionsOpen   core.PositionIDSet
	indexPositionsClosed core.PositionIDSet

	anomalies core.AnomalyCounts
}

// NewMemoryStore creates a new instance of MemoryStore
func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	s := &MemoryStore{logger: logger}
	s.initLocked()
	return s
}

// initLocked re-initializes every map and set. Caller must hold the write
// lock (or own the store exclusively, as in the constructor).
func (s *MemoryStore) initLocked() {
	s.accounts = make(map[core.AccountID]*core.Account)
	s.orders = make(map[core.ClientOrderID]*core.Order)
	s.positions = make(map[core.PositionID]*core.Position)

	s.strategies = core.NewStrategyIDSet()

	s.indexOrderPosition = make(map[core.ClientOrderID]core.PositionID)
	s.indexOrderStrategy = make(map[core.ClientOrderID]core.StrategyID)
	s.indexPositionStrategy = make(map[core.PositionID]core.StrategyID)
	s.indexPositionOrders = make(map[core.PositionID]core.OrderIDSet)
	s.indexStrategyOrders = make(map[core.StrategyID]core.OrderIDSet)
	s.indexStrategyPositions = make(map[core.StrategyID]core.PositionIDSet)

	s.indexOrders = core.NewOrderIDSet()
	s.indexOrdersWorking = core.NewOrderIDSet()
	s.indexOrdersCompleted = core.NewOrderIDSet()

	s.indexPositions = core.NewPositionIDSet()
	s.indexPositionsOpen = core.NewPositionIDSet()
	s.indexPositionsClosed = core.NewPositionIDSet()

	s.anomalies = core.AnomalyCounts{}
}

// SetEventSender wires an optional execution-event sender. A nil sender
// disables emission.
func (s *MemoryStore) SetEventSender(sender messaging.EventSender) {
	s.Lock()
	defer s.Unlock()
	s.sender = sender
}

// AddAccount inserts a new account record
func (s *MemoryStore) AddAccount(account *core.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", core.ErrNilArgument)
	}

	s.Lock()
	defer s.Unlock()

	if _, exists := s.accounts[account.ID()]; exists {
		return fmt.Errorf("%w: account %s", core.ErrDuplicateID, account.ID())
	}

	s.accounts[account.ID()] = account.Clone()
	return nil
}

// AddOrder inserts a new order record and indexes it under the strategy.
// A NULL position id is valid: the order is omitted from position-scoped
// indices.
func (s *MemoryStore) AddOrder(order *core.Order, positionID core.PositionID, strategyID core.StrategyID) error {
	if order == nil {
		return fmt.Errorf("%w: order", core.ErrNilArgument)
	}
	if strategyID == "" {
		return fmt.Errorf("%w: strategy id", core.ErrNilArgument)
	}

	clOrdID := order.ClOrdID()

	s.Lock()

	// Four independent duplication checks: any one firing means the caller
	// has already lost consistency.
	if _, exists := s.orders[clOrdID]; exists {
		s.Unlock()
		return fmt.Errorf("%w: order %s already in the order cache", core.ErrDuplicateID, clOrdID)
	}
	if s.indexOrders.Contains(clOrdID) {
		s.Unlock()
		return fmt.Errorf("%w: order %s already in the orders index", core.ErrDuplicateID, clOrdID)
	}
	if _, exists := s.indexOrderPosition[clOrdID]; exists {
		s.Unlock()
		return fmt.Errorf("%w: order %s already in the order-position index", core.ErrDuplicateID, clOrdID)
	}
	if _, exists := s.indexOrderStrategy[clOrdID]; exists {
		s.Unlock()
		return fmt.Errorf("%w: order %s already in the order-strategy index", core.ErrDuplicateID, clOrdID)
	}

	s.orders[clOrdID] = order.Clone()
	s.indexOrders.Add(clOrdID)
	s.indexOrderStrategy[clOrdID] = strategyID
	s.strategyOrdersLocked(strategyID).Add(clOrdID)

	if !positionID.IsNull() {
		s.indexPositionIDLocked(positionID, clOrdID, strategyID)
	}

	s.Unlock()

	s.emit(messaging.EventOrderAdded, string(clOrdID), string(positionID), string(strategyID), order.Symbol())
	return nil
}

// AddPosition inserts a new position record, places it in the open
// partition and indexes it via its own id, originating order and strategy.
func (s *MemoryStore) AddPosition(position *core.Position, strategyID core.StrategyID) error {
	if position == nil {
		return fmt.Errorf("%w: position", core.ErrNilArgument)
	}
	if strategyID == "" {
		return fmt.Errorf("%w: strategy id", core.ErrNilArgument)
	}

	positionID := position.ID()
	if positionID.IsNull() {
		return fmt.Errorf("%w: position id", core.ErrNilArgument)
	}

	s.Lock()

	if _, exists := s.positions[positionID]; exists {
		s.Unlock()
		return fmt.Errorf("%w: position %s already in the position cache", core.ErrDuplicateID, positionID)
	}
	if s.indexPositions.Contains(positionID) {
		s.Unlock()
		return fmt.Errorf("%w: position %s already in the positions index", core.ErrDuplicateID, positionID)
	}
	if s.indexPositionsOpen.Contains(positionID) {
		s.Unlock()
		return fmt.Errorf("%w: position %s already in the open positions index", core.ErrDuplicateID, positionID)
	}

	s.positions[positionID] = position.Clone()
	s.indexPositions.Add(positionID)
	s.indexPositionsOpen.Add(positionID)

	s.indexPositionIDLocked(positionID, position.FromOrder(), strategyID)

	s.Unlock()

	s.emit(messaging.EventPositionOpened, string(position.FromOrder()), string(positionID), string(strategyID), position.Symbol())
	return nil
}

// indexPositionIDLocked derives and updates the secondary indices for the
// (position, order, strategy) triple. All three ids must be non-null.
// Caller must hold the write lock.
func (s *MemoryStore) indexPositionIDLocked(positionID core.PositionID, clOrdID core.ClientOrderID, strategyID core.StrategyID) {
	if existing, ok := s.indexOrderPosition[clOrdID]; ok {
		if existing != positionID {
			// Set-once: never overwrite, this may be a benign backend race.
			s.anomalies.IndexConflicts++
			s.logger.Warn().
				Str("cl_ord_id", clOrdID.String()).
				Str("indexed_position_id", existing.String()).
				Str("given_position_id", positionID.String()).
				Msg("order already indexed to a different position")
		}
	} else {
		s.indexOrderPosition[clOrdID] = positionID
	}

	if existing, ok := s.indexPositionStrategy[positionID]; ok {
		if existing != strategyID {
			s.anomalies.IndexConflicts++
			s.logger.Warn().
				Str("position_id", positionID.String()).
				Str("indexed_strategy_id", existing.String()).
				Str("given_strategy_id", strategyID.String()).
				Msg("position already indexed to a different strategy")
		}
	} else {
		s.indexPositionStrategy[positionID] = strategyID
	}

	orders, ok := s.indexPositionOrders[positionID]
	if !ok {
		orders = core.NewOrderIDSet()
		s.indexPositionOrders[positionID] = orders
	}
	orders.Add(clOrdID)

	s.strategyOrdersLocked(strategyID).Add(clOrdID)
	s.strategyPositionsLocked(strategyID).Add(positionID)
}

func (s *MemoryStore) strategyOrdersLocked(strategyID core.StrategyID) core.OrderIDSet {
	orders, ok := s.indexStrategyOrders[strategyID]
	if !ok {
		orders = core.NewOrderIDSet()
		s.indexStrategyOrders[strategyID] = orders
	}
	return orders
}

func (s *MemoryStore) strategyPositionsLocked(strategyID core.StrategyID) core.PositionIDSet {
	positions, ok := s.indexStrategyPositions[strategyID]
	if !ok {
		positions = core.NewPositionIDSet()
		s.indexStrategyPositions[strategyID] = positions
	}
	return positions
}

// UpdateAccount refreshes the canonical copy of the account
func (s *MemoryStore) UpdateAccount(account *core.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", core.ErrNilArgument)
	}

	s.Lock()
	defer s.Unlock()
	s.accounts[account.ID()] = account.Clone()
	return nil
}

// UpdateOrder moves the order between the working and completed partitions
// according to its state predicates. Pending orders are left untouched.
func (s *MemoryStore) UpdateOrder(order *core.Order) error {
	if order == nil {
		return fmt.Errorf("%w: order", core.ErrNilArgument)
	}

	clOrdID := order.ClOrdID()
	event := ""

	s.Lock()
	s.orders[clOrdID] = order.Clone()

	switch {
	case order.IsWorking():
		s.indexOrdersWorking.Add(clOrdID)
		s.indexOrdersCompleted.Remove(clOrdID)
		event = messaging.EventOrderWorking
	case order.IsCompleted():
		s.indexOrdersCompleted.Add(clOrdID)
		s.indexOrdersWorking.Remove(clOrdID)
		event = messaging.EventOrderCompleted
	}
	s.Unlock()

	if event != "" {
		s.emit(event, string(clOrdID), "", "", order.Symbol())
	}
	return nil
}

// UpdatePosition moves the position between the open and closed partitions.
// A position reporting open again after being closed is treated as a reopen
// and moved back to the open partition.
func (s *MemoryStore) UpdatePosition(position *core.Position) error {
	if position == nil {
		return fmt.Errorf("%w: position", core.ErrNilArgument)
	}

	positionID := position.ID()
	event := ""

	s.Lock()
	s.positions[positionID] = position.Clone()

	if position.IsClosed() {
		if !s.indexPositionsClosed.Contains(positionID) {
			event = messaging.EventPositionClosed
		}
		s.indexPositionsClosed.Add(positionID)
		s.indexPositionsOpen.Remove(positionID)
	} else {
		if s.indexPositionsClosed.Contains(positionID) {
			event = messaging.EventPositionOpened
		}
		s.indexPositionsOpen.Add(positionID)
		s.indexPositionsClosed.Remove(positionID)
	}
	s.Unlock()

	if event != "" {
		s.emit(event, string(position.FromOrder()), string(positionID), "", position.Symbol())
	}
	return nil
}

// UpdateStrategy adds the strategy id to the known-strategies set
func (s *MemoryStore) UpdateStrategy(strategyID core.StrategyID) error {
	if strategyID == "" {
		return fmt.Errorf("%w: strategy id", core.ErrNilArgument)
	}

	s.Lock()
	defer s.Unlock()
	s.strategies.Add(strategyID)
	return nil
}

// LoadStrategy is a no-op for the in-memory store
func (s *MemoryStore) LoadStrategy(strategyID core.StrategyID) error {
	if strategyID == "" {
		return fmt.Errorf("%w: strategy id", core.ErrNilArgument)
	}
	return nil
}

// DeleteStrategy removes the strategy from the known-strategies set and
// drops its strategy-scoped index entries. Orders and positions previously
// associated with it remain addressable by id.
func (s *MemoryStore) DeleteStrategy(strategyID core.StrategyID) error {
	if strategyID == "" {
		return fmt.Errorf("%w: strategy id", core.ErrNilArgument)
	}

	s.Lock()
	if !s.strategies.Contains(strategyID) {
		s.Unlock()
		return fmt.Errorf("%w: %s", core.ErrNotRegistered, strategyID)
	}

	s.strategies.Remove(strategyID)
	delete(s.indexStrategyOrders, strategyID)
	delete(s.indexStrategyPositions, strategyID)
	s.Unlock()

	s.emit(messaging.EventStrategyDeleted, "", "", string(strategyID), "")
	return nil
}

// Reset clears every index and set and re-initializes the primary record
// store. Must not run concurrently with any other operation.
func (s *MemoryStore) Reset() error {
	s.Lock()
	defer s.Unlock()

	s.initLocked()
	s.logger.Debug().Msg("store reset")
	return nil
}

// Flush is a no-op for the in-memory store
func (s *MemoryStore) Flush() error {
	return nil
}

// LoadAccount returns the account or nil when absent
func (s *MemoryStore) LoadAccount(id core.AccountID) *core.Account {
	return s.GetAccount(id)
}

// LoadOrder returns the order or nil when absent
func (s *MemoryStore) LoadOrder(id core.ClientOrderID) *core.Order {
	return s.GetOrder(id)
}

// LoadPosition returns the position or nil when absent
func (s *MemoryStore) LoadPosition(id core.PositionID) *core.Position {
	return s.GetPosition(id)
}

// GetAccount returns a copy of the account or nil when absent
func (s *MemoryStore) GetAccount(id core.AccountID) *core.Account {
	s.RLock()
	defer s.RUnlock()
	if account, ok := s.accounts[id]; ok {
		return account.Clone()
	}
	return nil
}

// GetOrder returns a copy of the order or nil when absent
func (s *MemoryStore) GetOrder(id core.ClientOrderID) *core.Order {
	s.RLock()
	defer s.RUnlock()
	if order, ok := s.orders[id]; ok {
		return order.Clone()
	}
	return nil
}

// GetPosition returns a copy of the position or nil when absent
func (s *MemoryStore) GetPosition(id core.PositionID) *core.Position {
	s.RLock()
	defer s.RUnlock()
	if position, ok := s.positions[id]; ok {
		return position.Clone()
	}
	return nil
}

// OrderIDs returns the ids of all orders ever added
func (s *MemoryStore) OrderIDs(strategyID core.StrategyID) core.OrderIDSet {
	s.RLock()
	defer s.RUnlock()
	return s.filterOrderIDsLocked(s.indexOrders, strategyID)
}

// WorkingOrderIDs returns the ids of currently working orders
func (s *MemoryStore) WorkingOrderIDs(strategyID core.StrategyID) core.OrderIDSet {
	s.RLock()
	defer s.RUnlock()
	return s.filterOrderIDsLocked(s.indexOrdersWorking, strategyID)
}

// CompletedOrderIDs returns the ids of completed orders
func (s *MemoryStore) CompletedOrderIDs(strategyID core.StrategyID) core.OrderIDSet {
	s.RLock()
	defer s.RUnlock()
	return s.filterOrderIDsLocked(s.indexOrdersCompleted, strategyID)
}

// filterOrderIDsLocked copies the base set, intersected with the
// strategy-scoped set when a filter is given. The intersection guards
// against ids lingering in a strategy index after a state transition.
// Caller must hold at least the read lock.
func (s *MemoryStore) filterOrderIDsLocked(base core.OrderIDSet, strategyID core.StrategyID) core.OrderIDSet {
	if strategyID == "" {
		return base.Copy()
	}

	scoped, ok := s.indexStrategyOrders[strategyID]
	if !ok {
		return core.NewOrderIDSet()
	}
	return base.Intersect(scoped)
}

// PositionIDs returns the ids of all positions ever added
func (s *MemoryStore) PositionIDs(strategyID core.StrategyID) core.PositionIDSet {
	s.RLock()
	defer s.RUnlock()
	return s.filterPositionIDsLocked(s.indexPositions, strategyID)
}

// OpenPositionIDs returns the ids of open positions
func (s *MemoryStore) OpenPositionIDs(strategyID core.StrategyID) core.PositionIDSet {
	s.RLock()
	defer s.RUnlock()
	return s.filterPositionIDsLocked(s.indexPositionsOpen, strategyID)
}

// ClosedPositionIDs returns the ids of closed positions
func (s *MemoryStore) ClosedPositionIDs(strategyID core.StrategyID) core.PositionIDSet {
	s.RLock()
	defer s.RUnlock()
	return s.filterPositionIDsLocked(s.indexPositionsClosed, strategyID)
}

func (s *MemoryStore) filterPositionIDsLocked(base core.PositionIDSet, strategyID core.StrategyID) core.PositionIDSet {
	if strategyID == "" {
		return base.Copy()
	}

	scoped, ok := s.indexStrategyPositions[strategyID]
	if !ok {
		return core.NewPositionIDSet()
	}
	return base.Intersect(scoped)
}

// StrategyIDs returns a copy of the known strategy ids
func (s *MemoryStore) StrategyIDs() core.StrategyIDSet {
	s.RLock()
	defer s.RUnlock()
	return s.strategies.Copy()
}

// Orders projects OrderIDs through the primary record store
func (s *MemoryStore) Orders(strategyID core.StrategyID) map[core.ClientOrderID]*core.Order {
	s.Lock()
	defer s.Unlock()
	return s.projectOrdersLocked(s.filterOrderIDsLocked(s.indexOrders, strategyID))
}

// WorkingOrders projects WorkingOrderIDs through the primary record store
func (s *MemoryStore) WorkingOrders(strategyID core.StrategyID) map[core.ClientOrderID]*core.Order {
	s.Lock()
	defer s.Unlock()
	return s.projectOrdersLocked(s.filterOrderIDsLocked(s.indexOrdersWorking, strategyID))
}

// CompletedOrders projects CompletedOrderIDs through the primary record store
func (s *MemoryStore) CompletedOrders(strategyID core.StrategyID) map[core.ClientOrderID]*core.Order {
	s.Lock()
	defer s.Unlock()
	return s.projectOrdersLocked(s.filterOrderIDsLocked(s.indexOrdersCompleted, strategyID))
}

// projectOrdersLocked maps ids to records, logging and omitting ids with no
// backing record. Caller must hold the write lock.
func (s *MemoryStore) projectOrdersLocked(ids core.OrderIDSet) map[core.ClientOrderID]*core.Order {
	out := make(map[core.ClientOrderID]*core.Order, len(ids))
	for id := range ids {
		order, ok := s.orders[id]
		if !ok {
			s.anomalies.MissingRecords++
			s.logger.Error().
				Str("cl_ord_id", id.String()).
				Msg("order indexed but not found in the order cache")
			continue
		}
		out[id] = order.Clone()
	}
	return out
}

// Positions projects PositionIDs through the primary record store
func (s *MemoryStore) Positions(strategyID core.StrategyID) map[core.PositionID]*core.Position {
	s.Lock()
	defer s.Unlock()
	return s.projectPositionsLocked(s.filterPositionIDsLocked(s.indexPositions, strategyID))
}

// OpenPositions projects OpenPositionIDs through the primary record store
func (s *MemoryStore) OpenPositions(strategyID core.StrategyID) map[core.PositionID]*core.Position {
	s.Lock()
	defer s.Unlock()
	return s.projectPositionsLocked(s.filterPositionIDsLocked(s.indexPositionsOpen, strategyID))
}

// ClosedPositions projects ClosedPositionIDs through the primary record store
func (s *MemoryStore) ClosedPositions(strategyID core.StrategyID) map[core.PositionID]*core.Position {
	s.Lock()
	defer s.Unlock()
	return s.projectPositionsLocked(s.filterPositionIDsLocked(s.indexPositionsClosed, strategyID))
}

func (s *MemoryStore) projectPositionsLocked(ids core.PositionIDSet) map[core.PositionID]*core.Position {
	out := make(map[core.PositionID]*core.Position, len(ids))
	for id := range ids {
		position, ok := s.positions[id]
		if !ok {
			s.anomalies.MissingRecords++
			s.logger.Error().
				Str("position_id", id.String()).
				Msg("position indexed but not found in the position cache")
			continue
		}
		out[id] = position.Clone()
	}
	return out
}

// PositionIDForOrder returns the indexed position id, or the NULL id when
// the order is not indexed to a position
func (s *MemoryStore) PositionIDForOrder(clOrdID core.ClientOrderID) core.PositionID {
	s.RLock()
	defer s.RUnlock()
	return s.indexOrderPosition[clOrdID]
}

// OrderExists reports whether the order id was ever added
func (s *MemoryStore) OrderExists(id core.ClientOrderID) bool {
	s.RLock()
	defer s.RUnlock()
	return s.indexOrders.Contains(id)
}

// IsOrderWorking reports membership in the working partition
func (s *MemoryStore) IsOrderWorking(id core.ClientOrderID) bool {
	s.RLock()
	defer s.RUnlock()
	return s.indexOrdersWorking.Contains(id)
}

// IsOrderCompleted reports membership in the completed partition
func (s *MemoryStore) IsOrderCompleted(id core.ClientOrderID) bool {
	s.RLock()
	defer s.RUnlock()
	return s.indexOrdersCompleted.Contains(id)
}

// PositionExists reports whether the position id was ever added
func (s *MemoryStore) PositionExists(id core.PositionID) bool {
	s.RLock()
	defer s.RUnlock()
	return s.indexPositions.Contains(id)
}

// IsPositionOpen reports membership in the open partition
func (s *MemoryStore) IsPositionOpen(id core.PositionID) bool {
	s.RLock()
	defer s.RUnlock()
	return s.indexPositionsOpen.Contains(id)
}

// IsPositionClosed reports membership in the closed partition
func (s *MemoryStore) IsPositionClosed(id core.PositionID) bool {
	s.RLock()
	defer s.RUnlock()
	return s.indexPositionsClosed.Contains(id)
}

// PositionExistsForOrder reports whether a position record exists for the
// position id indexed against the order
func (s *MemoryStore) PositionExistsForOrder(clOrdID core.ClientOrderID) bool {
	s.RLock()
	defer s.RUnlock()

	positionID, ok := s.indexOrderPosition[clOrdID]
	if !ok {
		return false
	}
	return s.indexPositions.Contains(positionID)
}

// PositionIndexedForOrder reports whether the order has an entry in the
// order-position index
func (s *MemoryStore) PositionIndexedForOrder(clOrdID core.ClientOrderID) bool {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.indexOrderPosition[clOrdID]
	return ok
}

// Anomalies returns the soft anomaly counters recorded so far
func (s *MemoryStore) Anomalies() core.AnomalyCounts {
	s.RLock()
	defer s.RUnlock()
	return s.anomalies
}

// emit publishes an execution event when a sender is wired. Send failures
// are logged, never propagated.
func (s *MemoryStore) emit(kind, clOrdID, positionID, strategyID, symbol string) {
	s.RLock()
	sender := s.sender
	s.RUnlock()

	if sender == nil {
		return
	}

	err := sender.SendExecutionEvent(&messaging.ExecutionEventMessage{
		Kind:       kind,
		ClOrdID:    clOrdID,
		PositionID: positionID,
		StrategyID: strategyID,
		Symbol:     symbol,
		Timestamp:  time.Now(),
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("kind", kind).
			Msg("failed to send execution event")
	}
}

// Ensure MemoryStore implements ExecutionStore
var _ core.ExecutionStore = (*MemoryStore)(nil)
