package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperFillsImmediately(t *testing.T) {
	p := NewPaper()
	rep, err := p.SubmitOrder(context.Background(), SubmitRequest{
		Symbol: "BTCUSDT", Qty: 1.5, Side: SideBuy, OrderType: TypeLimit, Price: 30000,
	})
	require.NoError(t, err)
	require.Len(t, rep.Fills, 1)
	assert.Equal(t, 1.5, rep.Fills[0].Qty)
	assert.Equal(t, 30000.0, rep.Fills[0].Price)
	assert.NotEmpty(t, rep.OrderID)
}

func TestPaperReplaysIdempotencyKey(t *testing.T) {
	p := NewPaper()
	ctx := context.Background()
	req := SubmitRequest{
		Symbol: "BTCUSDT", Qty: 1, Side: SideBuy, OrderType: TypeMarket, Price: 100,
		IdempotencyKey: "abc123",
	}

	first, err := p.SubmitOrder(ctx, req)
	require.NoError(t, err)
	second, err := p.SubmitOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)

	// replayed, not re-filled: position unchanged
	positions, err := p.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 1.0, positions[0].Qty)
}

func TestPaperPositionMath(t *testing.T) {
	p := NewPaper()
	ctx := context.Background()

	_, err := p.SubmitOrder(ctx, SubmitRequest{Symbol: "ETHUSDT", Qty: 2, Side: SideBuy, Price: 100})
	require.NoError(t, err)
	_, err = p.SubmitOrder(ctx, SubmitRequest{Symbol: "ETHUSDT", Qty: 2, Side: SideBuy, Price: 200})
	require.NoError(t, err)

	positions, err := p.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 4.0, positions[0].Qty)
	assert.InDelta(t, 150.0, positions[0].AvgPrice, 1e-9)

	_, err = p.SubmitOrder(ctx, SubmitRequest{Symbol: "ETHUSDT", Qty: 4, Side: SideSell, Price: 160})
	require.NoError(t, err)
	positions, err = p.Positions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, positions[0].Qty)
	assert.Equal(t, 0.0, positions[0].AvgPrice)
}
