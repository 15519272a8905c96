package feed

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/berinsbackup-web/AITradingBot/internal/logger"
	"github.com/berinsbackup-web/AITradingBot/internal/pipeline"
)

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
	readTimeout  = 90 * time.Second
)

type subscribePacket struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

// Client maintains a websocket subscription to the market data feed
// and publishes decoded events onto the queue. It reconnects with
// exponential backoff and resubscribes every symbol after each
// reconnect.
type Client struct {
	url     string
	symbols []string
	queue   *pipeline.Queue

	OnConnected    func()
	OnDisconnected func(err error)
}

func NewClient(url string, symbols []string, queue *pipeline.Queue) *Client {
	return &Client{url: url, symbols: symbols, queue: queue}
}

// Run connects and pumps events until ctx is cancelled. It only
// returns the context error; transport errors trigger reconnects.
func (c *Client) Run(ctx context.Context) error {
	backoff := reconnectMin
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.OnDisconnected != nil {
			c.OnDisconnected(err)
		}
		logger.Warnf("feed: connection lost (%v), reconnecting in %s", err, backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	// Unblocks the read loop when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for _, sym := range c.symbols {
		if err := conn.WriteJSON(subscribePacket{Action: "subscribe", Symbol: sym}); err != nil {
			return err
		}
	}
	logger.Infof("feed: connected to %s (%d symbols)", c.url, len(c.symbols))
	if c.OnConnected != nil {
		c.OnConnected()
	}

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, err := Decode(raw)
		if err != nil {
			logger.Warnf("feed: dropping undecodable frame: %v", err)
			continue
		}
		if ev.Type == pipeline.EventHeartbeat {
			continue
		}
		if err := c.queue.Publish(ctx, ev); err != nil {
			return err
		}
	}
}
