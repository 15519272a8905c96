package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berinsbackup-web/AITradingBot/internal/pipeline"
)

func TestDecodeTrade(t *testing.T) {
	raw := []byte(`{"event":"trade","symbol":"BTCUSDT","price":30123.5,"quantity":0.25,"timestamp":1700000000}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, pipeline.EventTrade, ev.Type)
	require.NotNil(t, ev.Trade)
	assert.Equal(t, "BTCUSDT", ev.Trade.Symbol)
	assert.Equal(t, 30123.5, ev.Trade.Price)
	assert.Equal(t, 0.25, ev.Trade.Qty)
	assert.Equal(t, time.Unix(1700000000, 0), ev.At)
}

func TestDecodeQuote(t *testing.T) {
	raw := []byte(`{"event":"quote","symbol":"ETHUSDT","bid_price":1999.5,"bid_quantity":3,"ask_price":2000.5,"ask_quantity":2}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, ev.Quote)
	assert.Equal(t, 1999.5, ev.Quote.BidPrice)
	assert.Equal(t, 2000.5, ev.Quote.AskPrice)
	assert.Equal(t, 3.0, ev.Quote.BidQty)
}

func TestDecodeOHLC(t *testing.T) {
	raw := []byte(`{"event":"ohlc","symbol":"BTCUSDT","open":1,"high":4,"low":0.5,"close":3,"volume":100}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, ev.Bar)
	assert.Equal(t, 4.0, ev.Bar.High)
	assert.Equal(t, 3.0, ev.Bar.Close)
}

func TestDecodeMarketData(t *testing.T) {
	raw := []byte(`{"event":"market_data","symbol":"BTCUSDT","price":31000}`)
	ev, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, ev.MarketData)
	assert.Equal(t, 31000.0, ev.MarketData.Price)
}

func TestDecodeHeartbeat(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"heartbeat"}`))
	require.NoError(t, err)
	assert.Equal(t, pipeline.EventHeartbeat, ev.Type)
	assert.Nil(t, ev.Trade)
}

func TestDecodeMissingEventType(t *testing.T) {
	_, err := Decode([]byte(`{"symbol":"BTCUSDT"}`))
	assert.ErrorIs(t, err, ErrMissingEventType)
}

func TestDecodeUnknownTypePassedThrough(t *testing.T) {
	ev, err := Decode([]byte(`{"event":"funding_rate","symbol":"BTCUSDT"}`))
	require.NoError(t, err)
	assert.Equal(t, pipeline.EventType("funding_rate"), ev.Type)
	assert.Nil(t, ev.Trade)
	assert.Nil(t, ev.Quote)
}
