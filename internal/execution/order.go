// Package execution owns the order lifecycle: risk-gated submission,
// idempotent dedupe, slippage-adjusted pricing, fill application,
// position tracking and stale-order sweeping.
package execution

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderType string

const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
	TypeStop   OrderType = "STOP"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPartial   Status = "PARTIAL"
	StatusFilled    Status = "FILLED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
	// StatusUnknown marks a placement whose broker response could not
	// be interpreted. It is a degraded terminal state: never retried
	// here, reconciled out-of-band.
	StatusUnknown Status = "UNKNOWN"
)

// Terminal reports whether no further fills or transitions are legal.
func (s Status) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected, StatusUnknown:
		return true
	default:
		return false
	}
}

// Fill is one execution applied to an order.
type Fill struct {
	Qty   float64
	Price float64
	At    time.Time
}

var (
	ErrOrderTerminal = errors.New("order already in a terminal state")
	ErrInvalidFill   = errors.New("invalid fill quantity")
)

// Order is owned by the lifecycle manager from creation until it
// reaches a terminal state. Callers get it back from PlaceOrder but
// must not mutate it.
type Order struct {
	ID     string
	Symbol string
	Qty    float64
	Side   Side
	Type   OrderType
	Price  float64 // limit price; 0 for market orders

	Status        Status
	FilledQty     float64
	AvgFillPrice  float64
	Fills         []Fill
	PlacedAt      time.Time
	LastUpdate    time.Time
	BrokerOrderID string
	RejectReason  string
}

func NewOrder(symbol string, qty float64, side Side, typ OrderType, price float64) *Order {
	return &Order{
		ID:     uuid.NewString(),
		Symbol: symbol,
		Qty:    qty,
		Side:   side,
		Type:   typ,
		Price:  price,
		Status: StatusPending,
	}
}

// Remaining is the still-open quantity.
func (o *Order) Remaining() float64 {
	return o.Qty - o.FilledQty
}

// ApplyFill records one execution, recomputing the volume-weighted
// average fill price and the FILLED/PARTIAL status. Quantity in excess
// of the remaining open quantity is truncated so FilledQty never
// exceeds Qty.
func (o *Order) ApplyFill(qty, price float64, at time.Time) error {
	if o.Status.Terminal() {
		return ErrOrderTerminal
	}
	if qty <= 0 {
		return ErrInvalidFill
	}
	if remaining := o.Remaining(); qty > remaining {
		qty = remaining
	}
	if qty <= 0 {
		return ErrInvalidFill
	}
	if at.IsZero() {
		at = time.Now()
	}

	prevValue := o.AvgFillPrice * o.FilledQty
	o.FilledQty += qty
	o.AvgFillPrice = (prevValue + price*qty) / o.FilledQty
	o.Fills = append(o.Fills, Fill{Qty: qty, Price: price, At: at})
	o.LastUpdate = at

	if o.FilledQty >= o.Qty {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartial
	}
	return nil
}

// IsStale reports whether the order has gone quiet for longer than
// timeout. Orders that never received a fill fall back to their
// placement time, so a forgotten pending order is swept too.
func (o *Order) IsStale(now time.Time, timeout time.Duration) bool {
	if o.Status.Terminal() {
		return false
	}
	last := o.LastUpdate
	if last.IsZero() {
		last = o.PlacedAt
	}
	if last.IsZero() {
		return false
	}
	return now.Sub(last) > timeout
}

// snapshot returns a detached copy safe to hand out of the manager.
func (o *Order) snapshot() Order {
	cp := *o
	cp.Fills = append([]Fill(nil), o.Fills...)
	return cp
}
