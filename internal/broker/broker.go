// Package broker defines a common abstraction over order-routing
// backends. The execution core only ever talks to this interface;
// paper and live variants are interchangeable implementations picked
// at construction time.
package broker

import (
	"context"
	"time"
)

// Side and order-type vocabulary used on the broker wire.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	TypeMarket = "MARKET"
	TypeLimit  = "LIMIT"
	TypeStop   = "STOP"
)

// Fill is a single execution line reported for a submitted order.
type Fill struct {
	Qty       float64
	Price     float64
	Timestamp time.Time
}

// OrderReport is the broker's answer to a submission. Either Fills
// carries itemized executions, or FilledQty/FillPrice report a single
// aggregate fill, or neither is set and the caller must treat the
// outcome as uninterpretable.
type OrderReport struct {
	OrderID   string
	Status    string
	Fills     []Fill
	FilledQty float64
	FillPrice float64
}

// SubmitRequest carries everything a backend needs to route an order.
type SubmitRequest struct {
	Symbol         string
	Qty            float64
	Side           string
	OrderType      string
	Price          float64 // 0 for market orders
	IdempotencyKey string  // optional; backends may ignore it
}

// PositionInfo describes an open position held at the venue.
type PositionInfo struct {
	Symbol   string
	Qty      float64
	AvgPrice float64
}

// Broker routes orders to an execution venue. Implementations may
// return transient errors; the lifecycle manager treats any error as
// a rejected placement and owns no retry policy.
type Broker interface {
	Name() string
	SubmitOrder(ctx context.Context, req SubmitRequest) (*OrderReport, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	Positions(ctx context.Context) ([]PositionInfo, error)
}
