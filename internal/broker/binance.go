package broker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
)

// BinanceConfig holds the credentials and endpoint for the spot API.
type BinanceConfig struct {
	APIKey      string
	APISecret   string
	BaseURL     string
	HTTPTimeout time.Duration
}

// Binance adapts the go-binance spot client to the Broker interface.
type Binance struct {
	client *binance.Client
}

func NewBinance(cfg BinanceConfig) *Binance {
	client := binance.NewClient(cfg.APIKey, cfg.APISecret)
	if url := strings.TrimSpace(cfg.BaseURL); url != "" {
		client.BaseURL = url
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}
	return &Binance{client: client}
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) SubmitOrder(ctx context.Context, req SubmitRequest) (*OrderReport, error) {
	svc := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(binance.SideType(req.Side)).
		Type(binanceOrderType(req.OrderType)).
		Quantity(formatDecimal(req.Qty))
	if req.OrderType == TypeLimit {
		svc = svc.Price(formatDecimal(req.Price)).TimeInForce(binance.TimeInForceTypeGTC)
	}
	if req.IdempotencyKey != "" {
		svc = svc.NewClientOrderID(clientOrderID(req.IdempotencyKey))
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance submit %s %s: %w", req.Side, req.Symbol, err)
	}

	rep := &OrderReport{
		OrderID: strconv.FormatInt(res.OrderID, 10),
		Status:  string(res.Status),
	}
	at := time.UnixMilli(res.TransactTime)
	for _, f := range res.Fills {
		qty, _ := strconv.ParseFloat(f.Quantity, 64)
		price, _ := strconv.ParseFloat(f.Price, 64)
		rep.Fills = append(rep.Fills, Fill{Qty: qty, Price: price, Timestamp: at})
	}
	if len(rep.Fills) == 0 {
		executed, _ := strconv.ParseFloat(res.ExecutedQuantity, 64)
		if executed > 0 {
			rep.FilledQty = executed
			quote, _ := strconv.ParseFloat(res.CummulativeQuoteQuantity, 64)
			if quote > 0 {
				rep.FillPrice = quote / executed
			}
		}
	}
	return rep, nil
}

func (b *Binance) CancelOrder(ctx context.Context, symbol, orderID string) error {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return fmt.Errorf("binance cancel: bad order id %q: %w", orderID, err)
	}
	if _, err := b.client.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx); err != nil {
		return fmt.Errorf("binance cancel %s/%s: %w", symbol, orderID, err)
	}
	return nil
}

func (b *Binance) Positions(ctx context.Context) ([]PositionInfo, error) {
	acct, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance positions: %w", err)
	}
	out := make([]PositionInfo, 0, len(acct.Balances))
	for _, bal := range acct.Balances {
		free, _ := strconv.ParseFloat(bal.Free, 64)
		locked, _ := strconv.ParseFloat(bal.Locked, 64)
		if free+locked == 0 {
			continue
		}
		out = append(out, PositionInfo{Symbol: bal.Asset, Qty: free + locked})
	}
	return out, nil
}

func binanceOrderType(t string) binance.OrderType {
	switch t {
	case TypeLimit:
		return binance.OrderTypeLimit
	case TypeStop:
		return binance.OrderTypeStopLoss
	default:
		return binance.OrderTypeMarket
	}
}

// The exchange caps newClientOrderId at 36 characters; the sha256
// fingerprint is 64, so it gets truncated. The prefix is still unique
// enough for venue-side dedupe.
func clientOrderID(key string) string {
	if len(key) > 36 {
		return key[:36]
	}
	return key
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
