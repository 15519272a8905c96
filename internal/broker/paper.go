package broker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Paper is an in-memory broker that fills every order immediately at
// the submitted price. When the same idempotency key is seen again it
// replays the recorded response, mirroring a venue-side dedupe.
type Paper struct {
	mu        sync.Mutex
	byKey     map[string]*OrderReport
	positions map[string]*PositionInfo
}

func NewPaper() *Paper {
	return &Paper{
		byKey:     make(map[string]*OrderReport),
		positions: make(map[string]*PositionInfo),
	}
}

func (p *Paper) Name() string { return "paper" }

func (p *Paper) SubmitOrder(ctx context.Context, req SubmitRequest) (*OrderReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if req.IdempotencyKey != "" {
		if rep, ok := p.byKey[req.IdempotencyKey]; ok {
			return rep, nil
		}
	}

	rep := &OrderReport{
		OrderID: "paper-" + uuid.NewString(),
		Status:  "filled",
		Fills:   []Fill{{Qty: req.Qty, Price: req.Price, Timestamp: time.Now()}},
	}
	p.applyFillLocked(req)
	if req.IdempotencyKey != "" {
		p.byKey[req.IdempotencyKey] = rep
	}
	return rep, nil
}

func (p *Paper) applyFillLocked(req SubmitRequest) {
	pos := p.positions[req.Symbol]
	if pos == nil {
		pos = &PositionInfo{Symbol: req.Symbol}
		p.positions[req.Symbol] = pos
	}
	switch req.Side {
	case SideBuy:
		totalCost := pos.AvgPrice*pos.Qty + req.Price*req.Qty
		pos.Qty += req.Qty
		if pos.Qty > 0 {
			pos.AvgPrice = totalCost / pos.Qty
		}
	case SideSell:
		pos.Qty -= req.Qty
		if pos.Qty <= 0 {
			pos.Qty = 0
			pos.AvgPrice = 0
		}
	}
}

// CancelOrder always acknowledges; paper fills are instantaneous so
// there is never a resting order to remove.
func (p *Paper) CancelOrder(ctx context.Context, symbol, orderID string) error {
	return ctx.Err()
}

func (p *Paper) Positions(ctx context.Context) ([]PositionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PositionInfo, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out, nil
}
