package core

import (
	"encoding/json"

	"github.com/nikolaydubina/fpdecimal"
)

// Side represents buy or sell side of an order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

// Order statuses
const (
	StatusInitialized     OrderStatus = "INITIALIZED"
	StatusSubmitted       OrderStatus = "SUBMITTED"
	StatusAccepted        OrderStatus = "ACCEPTED"
	StatusWorking         OrderStatus = "WORKING"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusExpired         OrderStatus = "EXPIRED"
)

// Account stores information about a trading account
type Account struct {
	id       AccountID
	currency string
	balance  fpdecimal.Decimal
}

// NewAccount creates an Account record
func NewAccount(id AccountID, currency string, balance fpdecimal.Decimal) *Account {
	return &Account{
		id:       id,
		currency: currency,
		balance:  balance,
	}
}

// ID returns the account id
func (a *Account) ID() AccountID {
	return a.id
}

// Currency returns the account currency
func (a *Account) Currency() string {
	return a.currency
}

// Balance returns the account balance
func (a *Account) Balance() fpdecimal.Decimal {
	return a.balance
}

// SetBalance replaces the account balance
func (a *Account) SetBalance(balance fpdecimal.Decimal) {
	a.balance = balance
}

// Clone returns an independent copy of the account
func (a *Account) Clone() *Account {
	clone := *a
	return &clone
}

// MarshalJSON implements custom JSON marshaling for Account
func (a *Account) MarshalJSON() ([]byte, error) {
	type AccountJSON struct {
		ID       string `json:"id"`
		Currency string `json:"currency"`
		Balance  string `json:"balance"`
	}

	return json.Marshal(AccountJSON{
		ID:       string(a.id),
		Currency: a.currency,
		Balance:  a.balance.String(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Account
func (a *Account) UnmarshalJSON(data []byte) error {
	type AccountJSON struct {
		ID       string `json:"id"`
		Currency string `json:"currency"`
		Balance  string `json:"balance"`
	}

	var aux AccountJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	balance, err := fpdecimal.FromString(aux.Balance)
	if err != nil {
		return err
	}

	a.id = AccountID(aux.ID)
	a.currency = aux.Currency
	a.balance = balance
	return nil
}

// Order stores information about an order
type Order struct {
	clOrdID  ClientOrderID
	symbol   string
	side     Side
	quantity fpdecimal.Decimal
	price    fpdecimal.Decimal
	status   OrderStatus
}

// NewOrder creates an Order record in the Initialized state
func NewOrder(clOrdID ClientOrderID, symbol string, side Side, quantity, price fpdecimal.Decimal) (*Order, error) {
	if clOrdID == "" {
		return nil, ErrInvalidArgument
	}
	if quantity.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidQuantity
	}

	return &Order{
		clOrdID:  clOrdID,
		symbol:   symbol,
		side:     side,
		quantity: quantity,
		price:    price,
		status:   StatusInitialized,
	}, nil
}

// ClOrdID returns the client order id
func (o *Order) ClOrdID() ClientOrderID {
	return o.clOrdID
}

// Symbol returns the instrument symbol
func (o *Order) Symbol() string {
	return o.symbol
}

// Side returns the order side
func (o *Order) Side() Side {
	return o.side
}

// Quantity returns the order quantity
func (o *Order) Quantity() fpdecimal.Decimal {
	return o.quantity
}

// Price returns the order price
func (o *Order) Price() fpdecimal.Decimal {
	return o.price
}

// Status returns the order status
func (o *Order) Status() OrderStatus {
	return o.status
}

// SetStatus applies a lifecycle transition. Transitions are forward-only as
// observed by the store; moving a completed order back is a caller error and
// is not guarded here.
func (o *Order) SetStatus(status OrderStatus) {
	o.status = status
}

// Clone returns an independent copy of the order
func (o *Order) Clone() *Order {
	clone := *o
	return &clone
}

// IsWorking reports whether the order is live at the venue and eligible for
// modification or cancellation.
func (o *Order) IsWorking() bool {
	return o.status == StatusWorking || o.status == StatusPartiallyFilled
}

// IsCompleted reports whether the order is in a terminal state.
func (o *Order) IsCompleted() bool {
	switch o.status {
	case StatusFilled, StatusCancelled, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	type OrderJSON struct {
		ClOrdID  string      `json:"clOrdID"`
		Symbol   string      `json:"symbol"`
		Side     Side        `json:"side"`
		Quantity string      `json:"quantity"`
		Price    string      `json:"price"`
		Status   OrderStatus `json:"status"`
	}

	return json.Marshal(OrderJSON{
		ClOrdID:  string(o.clOrdID),
		Symbol:   o.symbol,
		Side:     o.side,
		Quantity: o.quantity.String(),
		Price:    o.price.String(),
		Status:   o.status,
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Order
func (o *Order) UnmarshalJSON(data []byte) error {
	type OrderJSON struct {
		ClOrdID  string      `json:"clOrdID"`
		Symbol   string      `json:"symbol"`
		Side     Side        `json:"side"`
		Quantity string      `json:"quantity"`
		Price    string      `json:"price"`
		Status   OrderStatus `json:"status"`
	}

	var aux OrderJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	quantity, err := fpdecimal.FromString(aux.Quantity)
	if err != nil {
		return err
	}

	price, err := fpdecimal.FromString(aux.Price)
	if err != nil {
		return err
	}

	o.clOrdID = ClientOrderID(aux.ClOrdID)
	o.symbol = aux.Symbol
	o.side = aux.Side
	o.quantity = quantity
	o.price = price
	o.status = aux.Status
	return nil
}

// Position stores information about a position
type Position struct {
	id        PositionID
	fromOrder ClientOrderID
	symbol    string
	quantity  fpdecimal.Decimal
}

// NewPosition creates a Position record originating from the given order
func NewPosition(id PositionID, fromOrder ClientOrderID, symbol string, quantity fpdecimal.Decimal) (*Position, error) {
	if id.IsNull() {
		return nil, ErrInvalidArgument
	}
	if fromOrder == "" {
		return nil, ErrInvalidArgument
	}

	return &Position{
		id:        id,
		fromOrder: fromOrder,
		symbol:    symbol,
		quantity:  quantity,
	}, nil
}

// ID returns the position id
func (p *Position) ID() PositionID {
	return p.id
}

// FromOrder returns the client order id that originated the position
func (p *Position) FromOrder() ClientOrderID {
	return p.fromOrder
}

// Symbol returns the instrument symbol
func (p *Position) Symbol() string {
	return p.symbol
}

// Quantity returns the signed net exposure
func (p *Position) Quantity() fpdecimal.Decimal {
	return p.quantity
}

// Clone returns an independent copy of the position
func (p *Position) Clone() *Position {
	clone := *p
	return &clone
}

// SetQuantity replaces the signed net exposure
func (p *Position) SetQuantity(quantity fpdecimal.Decimal) {
	p.quantity = quantity
}

// IsClosed reports whether the position has zero net exposure.
func (p *Position) IsClosed() bool {
	return p.quantity.Equal(fpdecimal.Zero)
}

// IsOpen reports whether the position has nonzero net exposure.
func (p *Position) IsOpen() bool {
	return !p.IsClosed()
}

// MarshalJSON implements custom JSON marshaling for Position
func (p *Position) MarshalJSON() ([]byte, error) {
	type PositionJSON struct {
		ID        string `json:"id"`
		FromOrder string `json:"fromOrder"`
		Symbol    string `json:"symbol"`
		Quantity  string `json:"quantity"`
	}

	return json.Marshal(PositionJSON{
		ID:        string(p.id),
		FromOrder: string(p.fromOrder),
		Symbol:    p.symbol,
		Quantity:  p.quantity.String(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Position
func (p *Position) UnmarshalJSON(data []byte) error {
	type PositionJSON struct {
		ID        string `json:"id"`
		FromOrder string `json:"fromOrder"`
		Symbol    string `json:"symbol"`
		Quantity  string `json:"quantity"`
	}

	var aux PositionJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	quantity, err := fpdecimal.FromString(aux.Quantity)
	if err != nil {
		return err
	}

	p.id = PositionID(aux.ID)
	p.fromOrder = ClientOrderID(aux.FromOrder)
	p.symbol = aux.Symbol
	p.quantity = quantity
	return nil
}
