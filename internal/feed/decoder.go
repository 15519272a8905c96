// Package feed connects to the market data websocket, decodes frames
// into pipeline events and publishes them onto the event queue.
package feed

import (
	"errors"
	"time"

	"github.com/tidwall/gjson"

	"github.com/berinsbackup-web/AITradingBot/internal/pipeline"
)

var ErrMissingEventType = errors.New("frame missing event type")

// Decode turns one normalized JSON frame into a pipeline event.
// Frames carry an "event" discriminator; fields not relevant to the
// event type are ignored. Unknown event types are passed through with
// only Type and At set so the dispatcher can drop them uniformly.
func Decode(raw []byte) (pipeline.Event, error) {
	root := gjson.ParseBytes(raw)
	evType := root.Get("event").String()
	if evType == "" {
		return pipeline.Event{}, ErrMissingEventType
	}

	at := time.Now()
	if ts := root.Get("timestamp"); ts.Exists() {
		at = time.Unix(ts.Int(), 0)
	}
	symbol := root.Get("symbol").String()

	ev := pipeline.Event{Type: pipeline.EventType(evType), At: at}
	switch ev.Type {
	case pipeline.EventTrade:
		ev.Trade = &pipeline.TradeTick{
			Symbol: symbol,
			Price:  root.Get("price").Float(),
			Qty:    root.Get("quantity").Float(),
			At:     at,
		}
	case pipeline.EventQuote:
		ev.Quote = &pipeline.Quote{
			Symbol:   symbol,
			BidPrice: root.Get("bid_price").Float(),
			BidQty:   root.Get("bid_quantity").Float(),
			AskPrice: root.Get("ask_price").Float(),
			AskQty:   root.Get("ask_quantity").Float(),
			At:       at,
		}
	case pipeline.EventOHLC:
		ev.Bar = &pipeline.Bar{
			Symbol: symbol,
			Open:   root.Get("open").Float(),
			High:   root.Get("high").Float(),
			Low:    root.Get("low").Float(),
			Close:  root.Get("close").Float(),
			Volume: root.Get("volume").Float(),
			At:     at,
		}
	case pipeline.EventMarketData:
		ev.MarketData = &pipeline.MarketDataSnapshot{
			Symbol: symbol,
			Price:  root.Get("price").Float(),
			At:     at,
		}
	case pipeline.EventHeartbeat:
		// liveness only, no payload
	}
	return ev, nil
}
