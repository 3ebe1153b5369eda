package core

// AccountID identifies a trading account.
type AccountID string

// ClientOrderID identifies an order as assigned by the client ("cl_ord_id").
type ClientOrderID string

// PositionID identifies a position. The zero value is the distinguished
// NULL id meaning "not yet assigned"; NULL ids are never indexed.
type PositionID string

// StrategyID identifies a trading strategy. The zero value doubles as the
// "no filter" marker on strategy-scoped queries.
type StrategyID string

// PositionIDNull is the NULL position id.
const PositionIDNull PositionID = ""

// IsNull reports whether the position id is the NULL id.
func (id PositionID) IsNull() bool {
	return id == PositionIDNull
}

func (id AccountID) String() string { return string(id) }

func (id ClientOrderID) String() string { return string(id) }

func (id PositionID) String() string { return string(id) }

func (id StrategyID) String() string { return string(id) }
