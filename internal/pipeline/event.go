// Package pipeline carries market events from the feed to their
// consumers through a bounded queue and a typed dispatcher.
package pipeline

import "time"

type EventType string

const (
	EventTrade      EventType = "trade"
	EventMarketData EventType = "market_data"
	EventQuote      EventType = "quote"
	EventOHLC       EventType = "ohlc"
	EventHeartbeat  EventType = "heartbeat"
)

// TradeTick is a single trade print.
type TradeTick struct {
	Symbol string
	Price  float64
	Qty    float64
	At     time.Time
}

// Quote is a best bid/ask update.
type Quote struct {
	Symbol   string
	BidPrice float64
	BidQty   float64
	AskPrice float64
	AskQty   float64
	At       time.Time
}

// Bar is one OHLC candle.
type Bar struct {
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	At     time.Time
}

// MarketDataSnapshot is a generic last-price update for symbols that
// publish neither quotes nor trades.
type MarketDataSnapshot struct {
	Symbol string
	Price  float64
	At     time.Time
}

// Event is the envelope moved through the queue. Exactly one payload
// pointer is set, matching Type; heartbeats carry none.
type Event struct {
	Type       EventType
	At         time.Time
	Trade      *TradeTick
	Quote      *Quote
	Bar        *Bar
	MarketData *MarketDataSnapshot
}
