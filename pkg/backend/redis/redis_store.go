package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/erain9/tradecache/pkg/core"
	"github.com/erain9/tradecache/pkg/messaging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions represents configuration options for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

var defaultOptions = &RedisOptions{
	Addr:     "localhost:6379",
	Password: "",
	DB:       0,
}

// SetDefaultRedisOptions sets the default options for Redis connections
func SetDefaultRedisOptions(options *RedisOptions) {
	defaultOptions = options
}

// GetRedisClient creates a new Redis client using the default options
func GetRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     defaultOptions.Addr,
		Password: defaultOptions.Password,
		DB:       defaultOptions.DB,
	})
}

// RedisStore implements the ExecutionStore contract with Redis storage.
// All state lives under trader-scoped keys so multiple independent stores
// can share one Redis instance.
type RedisStore struct {
	sync.RWMutex
	client *redis.Client
	ctx    context.Context
	logger *zap.Logger
	sender messaging.EventSender

	keyTrader                 string
	keyAccounts               string
	keyOrders                 string
	keyPositions              string
	keyStrategies             string
	keyIndexOrderPosition     string
	keyIndexOrderStrategy     string
	keyIndexPositionStrategy  string
	keyIndexPositionOrders    string
	keyIndexStrategyOrders    string
	keyIndexStrategyPositions string
	keyIndexOrders            string
	keyIndexOrdersWorking     string
	keyIndexOrdersCompleted   string
	keyIndexPositions         string
	keyIndexPositionsOpen     string
	keyIndexPositionsClosed   string

	anomalies core.AnomalyCounts
}

// NewRedisStore creates a new instance of RedisStore scoped to one trader id
func NewRedisStore(client *redis.Client, traderID string, logger *zap.Logger) *RedisStore {
	keyTrader := fmt.Sprintf("Trader-%s", traderID)

	return &RedisStore{
		client: client,
		ctx:    context.Background(),
		logger: logger,

		keyTrader:                 keyTrader,
		keyAccounts:               keyTrader + ":Accounts:",
		keyOrders:                 keyTrader + ":Orders:",
		keyPositions:              keyTrader + ":Positions:",
		keyStrategies:             keyTrader + ":Strategies",
		keyIndexOrderPosition:     keyTrader + ":Index:OrderPosition",
		keyIndexOrderStrategy:     keyTrader + ":Index:OrderStrategy",
		keyIndexPositionStrategy:  keyTrader + ":Index:PositionStrategy",
		keyIndexPositionOrders:    keyTrader + ":Index:PositionOrders:",
		keyIndexStrategyOrders:    keyTrader + ":Index:StrategyOrders:",
		keyIndexStrategyPositions: keyTrader + ":Index:StrategyPositions:",
		keyIndexOrders:            keyTrader + ":Index:Orders",
		keyIndexOrdersWorking:     keyTrader + ":Index:Orders:Working",
		keyIndexOrdersCompleted:   keyTrader + ":Index:Orders:Completed",
		keyIndexPositions:         keyTrader + ":Index:Positions",
		keyIndexPositionsOpen:     keyTrader + ":Index:Positions:Open",
		keyIndexPositionsClosed:   keyTrader + ":Index:Positions:Closed",
	}
}

// WithContext returns a new RedisStore with the given context
func (s *RedisStore) WithContext(ctx context.Context) *RedisStore {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RedisStore{
		client: s.client,
		ctx:    ctx,
		logger: s.logger,
		sender: s.sender,

		keyTrader:                 s.keyTrader,
		keyAccounts:               s.keyAccounts,
		keyOrders:                 s.keyOrders,
		keyPositions:              s.keyPositions,
		keyStrategies:             s.keyStrategies,
		keyIndexOrderPosition:     s.keyIndexOrderPosition,
		keyIndexOrderStrategy:     s.keyIndexOrderStrategy,
		keyIndexPositionStrategy:  s.keyIndexPositionStrategy,
		keyIndexPositionOrders:    s.keyIndexPositionOrders,
		keyIndexStrategyOrders:    s.keyIndexStrategyOrders,
		keyIndexStrategyPositions: s.keyIndexStrategyPositions,
		keyIndexOrders:            s.keyIndexOrders,
		keyIndexOrdersWorking:     s.keyIndexOrdersWorking,
		keyIndexOrdersCompleted:   s.keyIndexOrdersCompleted,
		keyIndexPositions:         s.keyIndexPositions,
		keyIndexPositionsOpen:     s.keyIndexPositionsOpen,
		keyIndexPositionsClosed:   s.keyIndexPositionsClosed,

		anomalies: s.anomalies,
	}
}

// SetEventSender wires an optional execution-event sender. A nil sender
// disables emission.
func (s *RedisStore) SetEventSender(sender messaging.EventSender) {
	s.Lock()
	defer s.Unlock()
	s.sender = sender
}

// Close closes the Redis client and cleans up resources
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Key helpers

func (s *RedisStore) accountKey(id core.AccountID) string {
	return s.keyAccounts + string(id)
}

func (s *RedisStore) orderKey(id core.ClientOrderID) string {
	return s.keyOrders + string(id)
}

func (s *RedisStore) positionKey(id core.PositionID) string {
	return s.keyPositions + string(id)
}

func (s *RedisStore) positionOrdersKey(id core.PositionID) string {
	return s.keyIndexPositionOrders + string(id)
}

func (s *RedisStore) strategyOrdersKey(id core.StrategyID) string {
	return s.keyIndexStrategyOrders + string(id)
}

func (s *RedisStore) strategyPositionsKey(id core.StrategyID) string {
	return s.keyIndexStrategyPositions + string(id)
}

// AddAccount inserts a new account record
func (s *RedisStore) AddAccount(account *core.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", core.ErrNilArgument)
	}

	key := s.accountKey(account.ID())
	exists, err := s.client.Exists(s.ctx, key).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("%w: account %s", core.ErrDuplicateID, account.ID())
	}

	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, 0).Err()
}

// AddOrder inserts a new order record and indexes it under the strategy.
// A NULL position id is valid: the order is omitted from position-scoped
// indices.
func (s *RedisStore) AddOrder(order *core.Order, positionID core.PositionID, strategyID core.StrategyID) error {
	if order == nil {
		return fmt.Errorf("%w: order", core.ErrNilArgument)
	}
	if strategyID == "" {
		return fmt.Errorf("%w: strategy id", core.ErrNilArgument)
	}

	clOrdID := order.ClOrdID()

	// Four independent duplication checks, batched in one round trip
	pipe := s.client.Pipeline()
	existsCmd := pipe.Exists(s.ctx, s.orderKey(clOrdID))
	inOrdersCmd := pipe.SIsMember(s.ctx, s.keyIndexOrders, string(clOrdID))
	inPositionIdxCmd := pipe.HExists(s.ctx, s.keyIndexOrderPosition, string(clOrdID))
	inStrategyIdxCmd := pipe.HExists(s.ctx, s.keyIndexOrderStrategy, string(clOrdID))
	if _, err := pipe.Exec(s.ctx); err != nil {
		return err
	}

	switch {
	case existsCmd.Val() > 0:
		return fmt.Errorf("%w: order %s already in the order cache", core.ErrDuplicateID, clOrdID)
	case inOrdersCmd.Val():
		return fmt.Errorf("%w: order %s already in the orders index", core.ErrDuplicateID, clOrdID)
	case inPositionIdxCmd.Val():
		return fmt.Errorf("%w: order %s already in the order-position index", core.ErrDuplicateID, clOrdID)
	case inStrategyIdxCmd.Val():
		return fmt.Errorf("%w: order %s already in the order-strategy index", core.ErrDuplicateID, clOrdID)
	}

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	pipe = s.client.Pipeline()
	pipe.Set(s.ctx, s.orderKey(clOrdID), data, 0)
	pipe.SAdd(s.ctx, s.keyIndexOrders, string(clOrdID))
	pipe.HSet(s.ctx, s.keyIndexOrderStrategy, string(clOrdID), string(strategyID))
	pipe.SAdd(s.ctx, s.strategyOrdersKey(strategyID), string(clOrdID))
	if _, err := pipe.Exec(s.ctx); err != nil {
		s.logger.Error("failed to add order",
			zap.String("cl_ord_id", clOrdID.String()),
			zap.Error(err))
		return err
	}

	if !positionID.IsNull() {
		if err := s.indexPositionID(positionID, clOrdID, strategyID); err != nil {
			return err
		}
	}

	s.emit(messaging.EventOrderAdded, string(clOrdID), string(positionID), string(strategyID), order.Symbol())
	return nil
}

// AddPosition inserts a new position record, places it in the open
// partition and indexes it via its own id, originating order and strategy.
func (s *RedisStore) AddPosition(position *core.Position, strategyID core.StrategyID) error {
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

	pipe := s.client.Pipeline()
	existsCmd := pipe.Exists(s.ctx, s.positionKey(positionID))
	inPositionsCmd := pipe.SIsMember(s.ctx, s.keyIndexPositions, string(positionID))
	inOpenCmd := pipe.SIsMember(s.ctx, s.keyIndexPositionsOpen, string(positionID))
	if _, err := pipe.Exec(s.ctx); err != nil {
		return err
	}

	switch {
	case existsCmd.Val() > 0:
		return fmt.Errorf("%w: position %s already in the position cache", core.ErrDuplicateID, positionID)
	case inPositionsCmd.Val():
		return fmt.Errorf("%w: position %s already in the positions index", core.ErrDuplicateID, positionID)
	case inOpenCmd.Val():
		return fmt.Errorf("%w: position %s already in the open positions index", core.ErrDuplicateID, positionID)
	}

	data, err := json.Marshal(position)
	if err != nil {
		return err
	}

	pipe = s.client.Pipeline()
	pipe.Set(s.ctx, s.positionKey(positionID), data, 0)
	pipe.SAdd(s.ctx, s.keyIndexPositions, string(positionID))
	pipe.SAdd(s.ctx, s.keyIndexPositionsOpen, string(positionID))
	if _, err := pipe.Exec(s.ctx); err != nil {
		s.logger.Error("failed to add position",
			zap.String("position_id", positionID.String()),
			zap.Error(err))
		return err
	}

	if err := s.indexPositionID(positionID, position.FromOrder(), strategyID); err != nil {
		return err
	}

	s.emit(messaging.EventPositionOpened, string(position.FromOrder()), string(positionID), string(strategyID), position.Symbol())
	return nil
}

// indexPositionID derives and updates the secondary indices for the
// (position, order, strategy) triple. The 1:1 indices are set-once: a
// conflicting entry is never overwritten, only counted and logged, since
// backends may race benignly.
func (s *RedisStore) indexPositionID(positionID core.PositionID, clOrdID core.ClientOrderID, strategyID core.StrategyID) error {
	set, err := s.client.HSetNX(s.ctx, s.keyIndexOrderPosition, string(clOrdID), string(positionID)).Result()
	if err != nil {
		return err
	}
	if !set {
		existing, err := s.client.HGet(s.ctx, s.keyIndexOrderPosition, string(clOrdID)).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if existing != string(positionID) {
			s.recordIndexConflict()
			s.logger.Warn("order already indexed to a different position",
				zap.String("cl_ord_id", clOrdID.String()),
				zap.String("indexed_position_id", existing),
				zap.String("given_position_id", positionID.String()))
		}
	}

	set, err = s.client.HSetNX(s.ctx, s.keyIndexPositionStrategy, string(positionID), string(strategyID)).Result()
	if err != nil {
		return err
	}
	if !set {
		existing, err := s.client.HGet(s.ctx, s.keyIndexPositionStrategy, string(positionID)).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if existing != string(strategyID) {
			s.recordIndexConflict()
			s.logger.Warn("position already indexed to a different strategy",
				zap.String("position_id", positionID.String()),
				zap.String("indexed_strategy_id", existing),
				zap.String("given_strategy_id", strategyID.String()))
		}
	}

	pipe := s.client.Pipeline()
	pipe.SAdd(s.ctx, s.positionOrdersKey(positionID), string(clOrdID))
	pipe.SAdd(s.ctx, s.strategyOrdersKey(strategyID), string(clOrdID))
	pipe.SAdd(s.ctx, s.strategyPositionsKey(strategyID), string(positionID))
	if _, err := pipe.Exec(s.ctx); err != nil {
		s.logger.Error("failed to update position indices",
			zap.String("position_id", positionID.String()),
			zap.Error(err))
		return err
	}

	return nil
}

// UpdateAccount refreshes the persisted copy of the account
func (s *RedisStore) UpdateAccount(account *core.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", core.ErrNilArgument)
	}

	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, s.accountKey(account.ID()), data, 0).Err()
}

// UpdateOrder moves the order between the working and completed partitions
// according to its state predicates. Pending orders are left untouched.
func (s *RedisStore) UpdateOrder(order *core.Order) error {
	if order == nil {
		return fmt.Errorf("%w: order", core.ErrNilArgument)
	}

	clOrdID := order.ClOrdID()

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(s.ctx, s.orderKey(clOrdID), data, 0)

	event := ""
	switch {
	case order.IsWorking():
		pipe.SAdd(s.ctx, s.keyIndexOrdersWorking, string(clOrdID))
		pipe.SRem(s.ctx, s.keyIndexOrdersCompleted, string(clOrdID))
		event = messaging.EventOrderWorking
	case order.IsCompleted():
		pipe.SAdd(s.ctx, s.keyIndexOrdersCompleted, string(clOrdID))
		pipe.SRem(s.ctx, s.keyIndexOrdersWorking, string(clOrdID))
		event = messaging.EventOrderCompleted
	}

	if _, err := pipe.Exec(s.ctx); err != nil {
		s.logger.Error("failed to update order",
			zap.String("cl_ord_id", clOrdID.String()),
			zap.Error(err))
		return err
	}

	if event != "" {
		s.emit(event, string(clOrdID), "", "", order.Symbol())
	}
	return nil
}

// UpdatePosition moves the position between the open and closed partitions.
// A position reporting open again after being closed is treated as a reopen
// and moved back to the open partition.
func (s *RedisStore) UpdatePosition(position *core.Position) error {
	if position == nil {
		return fmt.Errorf("%w: position", core.ErrNilArgument)
	}

	positionID := position.ID()

	data, err := json.Marshal(position)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(s.ctx, s.positionKey(positionID), data, 0)

	var addedCmd *redis.IntCmd
	event := ""
	if position.IsClosed() {
		addedCmd = pipe.SAdd(s.ctx, s.keyIndexPositionsClosed, string(positionID))
		pipe.SRem(s.ctx, s.keyIndexPositionsOpen, string(positionID))
		event = messaging.EventPositionClosed
	} else {
		addedCmd = pipe.SAdd(s.ctx, s.keyIndexPositionsOpen, string(positionID))
		pipe.SRem(s.ctx, s.keyIndexPositionsClosed, string(positionID))
		event = messaging.EventPositionOpened
	}

	if _, err := pipe.Exec(s.ctx); err != nil {
		s.logger.Error("failed to update position",
			zap.String("position_id", positionID.String()),
			zap.Error(err))
		return err
	}

	// Only emit when the partition membership actually changed
	if addedCmd.Val() > 0 {
		s.emit(event, string(position.FromOrder()), string(positionID), "", position.Symbol())
	}
	return nil
}

// UpdateStrategy adds the strategy id to the known-strategies set
func (s *RedisStore) UpdateStrategy(strategyID core.StrategyID) error {
	if strategyID == "" {
		return fmt.Errorf("%w: strategy id", core.ErrNilArgument)
	}

	return s.client.SAdd(s.ctx, s.keyStrategies, string(strategyID)).Err()
}

// LoadStrategy restores persisted strategy state. The store keeps only
// strategy identity, so there is nothing further to restore.
func (s *RedisStore) LoadStrategy(strategyID core.StrategyID) error {
	if strategyID == "" {
		return fmt.Errorf("%w: strategy id", core.ErrNilArgument)
	}
	return nil
}

// DeleteStrategy removes the strategy from the known-strategies set and
// drops its strategy-scoped index entries. Orders and positions previously
// associated with it remain addressable by id.
func (s *RedisStore) DeleteStrategy(strategyID core.StrategyID) error {
	if strategyID == "" {
		return fmt.Errorf("%w: strategy id", core.ErrNilArgument)
	}

	removed, err := s.client.SRem(s.ctx, s.keyStrategies, string(strategyID)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotRegistered, strategyID)
	}

	pipe := s.client.Pipeline()
	pipe.Del(s.ctx, s.strategyOrdersKey(strategyID))
	pipe.Del(s.ctx, s.strategyPositionsKey(strategyID))
	if _, err := pipe.Exec(s.ctx); err != nil {
		s.logger.Error("failed to drop strategy indices",
			zap.String("strategy_id", strategyID.String()),
			zap.Error(err))
		return err
	}

	s.emit(messaging.EventStrategyDeleted, "", "", string(strategyID), "")
	return nil
}

// Reset deletes every trader-scoped key, clearing indices and primary
// records alike. Must not run concurrently with any other operation.
func (s *RedisStore) Reset() error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(s.ctx, cursor, s.keyTrader+":*", 512).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(s.ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	s.Lock()
	s.anomalies = core.AnomalyCounts{}
	s.Unlock()
	return nil
}

// Flush wipes the whole database. Intended for teardown between trading
// sessions sharing nothing; use Reset to clear a single trader's state.
func (s *RedisStore) Flush() error {
	return s.client.FlushDB(s.ctx).Err()
}

// LoadAccount returns the account or nil when absent
func (s *RedisStore) LoadAccount(id core.AccountID) *core.Account {
	data, err := s.client.Get(s.ctx, s.accountKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Error("failed to load account",
				zap.String("account_id", id.String()),
				zap.Error(err))
		}
		return nil
	}

	var account core.Account
	if err := json.Unmarshal(data, &account); err != nil {
		s.logger.Error("failed to unmarshal account",
			zap.String("account_id", id.String()),
			zap.Error(err))
		return nil
	}

	return &account
}

// LoadOrder returns the order or nil when absent
func (s *RedisStore) LoadOrder(id core.ClientOrderID) *core.Order {
	data, err := s.client.Get(s.ctx, s.orderKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Error("failed to load order",
				zap.String("cl_ord_id", id.String()),
				zap.Error(err))
		}
		return nil
	}

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		s.logger.Error("failed to unmarshal order",
			zap.String("cl_ord_id", id.String()),
			zap.Error(err))
		return nil
	}

	return &order
}

// LoadPosition returns the position or nil when absent
func (s *RedisStore) LoadPosition(id core.PositionID) *core.Position {
	data, err := s.client.Get(s.ctx, s.positionKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Error("failed to load position",
				zap.String("position_id", id.String()),
				zap.Error(err))
		}
		return nil
	}

	var position core.Position
	if err := json.Unmarshal(data, &position); err != nil {
		s.logger.Error("failed to unmarshal position",
			zap.String("position_id", id.String()),
			zap.Error(err))
		return nil
	}

	return &position
}

// GetAccount reads the account from the medium. Equivalent to LoadAccount
// for this backend.
func (s *RedisStore) GetAccount(id core.AccountID) *core.Account {
	return s.LoadAccount(id)
}

// GetOrder reads the order from the medium
func (s *RedisStore) GetOrder(id core.ClientOrderID) *core.Order {
	return s.LoadOrder(id)
}

// GetPosition reads the position from the medium
func (s *RedisStore) GetPosition(id core.PositionID) *core.Position {
	return s.LoadPosition(id)
}

// orderIDSet runs the id-set query for one base set, intersecting with the
// strategy-scoped set server-side when a filter is given
func (s *RedisStore) orderIDSet(baseKey string, strategyID core.StrategyID) core.OrderIDSet {
	var members []string
	var err error

	if strategyID == "" {
		members, err = s.client.SMembers(s.ctx, baseKey).Result()
	} else {
		members, err = s.client.SInter(s.ctx, baseKey, s.strategyOrdersKey(strategyID)).Result()
	}
	if err != nil {
		s.logger.Error("failed to read order id set",
			zap.String("key", baseKey),
			zap.Error(err))
		return core.NewOrderIDSet()
	}

	out := make(core.OrderIDSet, len(members))
	for _, member := range members {
		out.Add(core.ClientOrderID(member))
	}
	return out
}

func (s *RedisStore) positionIDSet(baseKey string, strategyID core.StrategyID) core.PositionIDSet {
	var members []string
	var err error

	if strategyID == "" {
		members, err = s.client.SMembers(s.ctx, baseKey).Result()
	} else {
		members, err = s.client.SInter(s.ctx, baseKey, s.strategyPositionsKey(strategyID)).Result()
	}
	if err != nil {
		s.logger.Error("failed to read position id set",
			zap.String("key", baseKey),
			zap.Error(err))
		return core.NewPositionIDSet()
	}

	out := make(core.PositionIDSet, len(members))
	for _, member := range members {
		out.Add(core.PositionID(member))
	}
	return out
}

// OrderIDs returns the ids of all orders ever added
func (s *RedisStore) OrderIDs(strategyID core.StrategyID) core.OrderIDSet {
	return s.orderIDSet(s.keyIndexOrders, strategyID)
}

// WorkingOrderIDs returns the ids of currently working orders
func (s *RedisStore) WorkingOrderIDs(strategyID core.StrategyID) core.OrderIDSet {
	return s.orderIDSet(s.keyIndexOrdersWorking, strategyID)
}

// CompletedOrderIDs returns the ids of completed orders
func (s *RedisStore) CompletedOrderIDs(strategyID core.StrategyID) core.OrderIDSet {
	return s.orderIDSet(s.keyIndexOrdersCompleted, strategyID)
}

// PositionIDs returns the ids of all positions ever added
func (s *RedisStore) PositionIDs(strategyID core.StrategyID) core.PositionIDSet {
	return s.positionIDSet(s.keyIndexPositions, strategyID)
}

// OpenPositionIDs returns the ids of open positions
func (s *RedisStore) OpenPositionIDs(strategyID core.StrategyID) core.PositionIDSet {
	return s.positionIDSet(s.keyIndexPositionsOpen, strategyID)
}

// ClosedPositionIDs returns the ids of closed positions
func (s *RedisStore) ClosedPositionIDs(strategyID core.StrategyID) core.PositionIDSet {
	return s.positionIDSet(s.keyIndexPositionsClosed, strategyID)
}

// StrategyIDs returns the known strategy ids
func (s *RedisStore) StrategyIDs() core.StrategyIDSet {
	members, err := s.client.SMembers(s.ctx, s.keyStrategies).Result()
	if err != nil {
		s.logger.Error("failed to read strategy id set", zap.Error(err))
		return core.NewStrategyIDSet()
	}

	out := make(core.StrategyIDSet, len(members))
	for _, member := range members {
		out.Add(core.StrategyID(member))
	}
	return out
}

// Orders projects OrderIDs through the primary record store
func (s *RedisStore) Orders(strategyID core.StrategyID) map[core.ClientOrderID]*core.Order {
	return s.projectOrders(s.OrderIDs(strategyID))
}

// WorkingOrders projects WorkingOrderIDs through the primary record store
func (s *RedisStore) WorkingOrders(strategyID core.StrategyID) map[core.ClientOrderID]*core.Order {
	return s.projectOrders(s.WorkingOrderIDs(strategyID))
}

// CompletedOrders projects CompletedOrderIDs through the primary record store
func (s *RedisStore) CompletedOrders(strategyID core.StrategyID) map[core.ClientOrderID]*core.Order {
	return s.projectOrders(s.CompletedOrderIDs(strategyID))
}

// projectOrders maps ids to records, logging and omitting ids with no
// backing record
func (s *RedisStore) projectOrders(ids core.OrderIDSet) map[core.ClientOrderID]*core.Order {
	out := make(map[core.ClientOrderID]*core.Order, len(ids))
	for id := range ids {
		order := s.LoadOrder(id)
		if order == nil {
			s.recordMissingRecord()
			s.logger.Error("order indexed but not found in the order cache",
				zap.String("cl_ord_id", id.String()))
			continue
		}
		out[id] = order
	}
	return out
}

// Positions projects PositionIDs through the primary record store
func (s *RedisStore) Positions(strategyID core.StrategyID) map[core.PositionID]*core.Position {
	return s.projectPositions(s.PositionIDs(strategyID))
}

// OpenPositions projects OpenPositionIDs through the primary record store
func (s *RedisStore) OpenPositions(strategyID core.StrategyID) map[core.PositionID]*core.Position {
	return s.projectPositions(s.OpenPositionIDs(strategyID))
}

// ClosedPositions projects ClosedPositionIDs through the primary record store
func (s *RedisStore) ClosedPositions(strategyID core.StrategyID) map[core.PositionID]*core.Position {
	return s.projectPositions(s.ClosedPositionIDs(strategyID))
}

func (s *RedisStore) projectPositions(ids core.PositionIDSet) map[core.PositionID]*core.Position {
	out := make(map[core.PositionID]*core.Position, len(ids))
	for id := range ids {
		position := s.LoadPosition(id)
		if position == nil {
			s.recordMissingRecord()
			s.logger.Error("position indexed but not found in the position cache",
				zap.String("position_id", id.String()))
			continue
		}
		out[id] = position
	}
	return out
}

// PositionIDForOrder returns the indexed position id, or the NULL id when
// the order is not indexed to a position
func (s *RedisStore) PositionIDForOrder(clOrdID core.ClientOrderID) core.PositionID {
	value, err := s.client.HGet(s.ctx, s.keyIndexOrderPosition, string(clOrdID)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Error("failed to read order-position index",
				zap.String("cl_ord_id", clOrdID.String()),
				zap.Error(err))
		}
		return core.PositionIDNull
	}
	return core.PositionID(value)
}

func (s *RedisStore) isMember(key, member string) bool {
	ok, err := s.client.SIsMember(s.ctx, key, member).Result()
	if err != nil {
		s.logger.Error("failed to check set membership",
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return ok
}

// OrderExists reports whether the order id was ever added
func (s *RedisStore) OrderExists(id core.ClientOrderID) bool {
	return s.isMember(s.keyIndexOrders, string(id))
}

// IsOrderWorking reports membership in the working partition
func (s *RedisStore) IsOrderWorking(id core.ClientOrderID) bool {
	return s.isMember(s.keyIndexOrdersWorking, string(id))
}

// IsOrderCompleted reports membership in the completed partition
func (s *RedisStore) IsOrderCompleted(id core.ClientOrderID) bool {
	return s.isMember(s.keyIndexOrdersCompleted, string(id))
}

// PositionExists reports whether the position id was ever added
func (s *RedisStore) PositionExists(id core.PositionID) bool {
	return s.isMember(s.keyIndexPositions, string(id))
}

// IsPositionOpen reports membership in the open partition
func (s *RedisStore) IsPositionOpen(id core.PositionID) bool {
	return s.isMember(s.keyIndexPositionsOpen, string(id))
}

// IsPositionClosed reports membership in the closed partition
func (s *RedisStore) IsPositionClosed(id core.PositionID) bool {
	return s.isMember(s.keyIndexPositionsClosed, string(id))
}

// PositionExistsForOrder reports whether a position record exists for the
// position id indexed against the order
func (s *RedisStore) PositionExistsForOrder(clOrdID core.ClientOrderID) bool {
	positionID := s.PositionIDForOrder(clOrdID)
	if positionID.IsNull() {
		return false
	}
	return s.isMember(s.keyIndexPositions, string(positionID))
}

// PositionIndexedForOrder reports whether the order has an entry in the
// order-position index
func (s *RedisStore) PositionIndexedForOrder(clOrdID core.ClientOrderID) bool {
	ok, err := s.client.HExists(s.ctx, s.keyIndexOrderPosition, string(clOrdID)).Result()
	if err != nil {
		s.logger.Error("failed to check order-position index",
			zap.String("cl_ord_id", clOrdID.String()),
			zap.Error(err))
		return false
	}
	return ok
}

// Anomalies returns the soft anomaly counters recorded so far
func (s *RedisStore) Anomalies() core.AnomalyCounts {
	s.RLock()
	defer s.RUnlock()
	return s.anomalies
}

func (s *RedisStore) recordIndexConflict() {
	s.Lock()
	s.anomalies.IndexConflicts++
	s.Unlock()
}

func (s *RedisStore) recordMissingRecord() {
	s.Lock()
	s.anomalies.MissingRecords++
	s.Unlock()
}

// emit publishes an execution event when a sender is wired. Send failures
// are logged, never propagated.
func (s *RedisStore) emit(kind, clOrdID, positionID, strategyID, symbol string) {
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
		s.logger.Error("failed to send execution event",
			zap.String("kind", kind),
			zap.Error(err))
	}
}

// Ensure RedisStore implements ExecutionStore
var _ core.ExecutionStore = (*RedisStore)(nil)
