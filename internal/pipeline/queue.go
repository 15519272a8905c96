package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/berinsbackup-web/AITradingBot/internal/logger"
)

const DefaultQueueCapacity = 1024

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Queue is a bounded FIFO of events. Publish blocks when full so the
// producer is backpressured rather than events dropped silently;
// TryPublish is the non-blocking variant for callers that prefer to
// drop.
type Queue struct {
	ch     chan Event
	done   chan struct{}
	closed atomic.Bool
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		ch:   make(chan Event, capacity),
		done: make(chan struct{}),
	}
}

// Publish enqueues an event, blocking until there is room, the queue
// closes, or ctx is done.
func (q *Queue) Publish(ctx context.Context, ev Event) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.ch <- ev:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish enqueues without blocking, returning ErrQueueFull when
// there is no room.
func (q *Queue) TryPublish(ev Event) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.ch <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the queue; Run drains what was already enqueued and
// returns. The event channel itself is never closed: publishers may be
// parked mid-send on a full queue, so shutdown is signalled through a
// separate done channel instead. Closing twice is a no-op.
func (q *Queue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.done)
	}
}

func (q *Queue) Len() int { return len(q.ch) }

// Run consumes events until the queue is closed and drained or ctx is
// cancelled, passing each event to handle.
func (q *Queue) Run(ctx context.Context, handle func(Event)) {
	for {
		select {
		case <-ctx.Done():
			logger.Debugf("pipeline: queue consumer stopping: %v", ctx.Err())
			return
		case ev := <-q.ch:
			handle(ev)
		case <-q.done:
			for {
				select {
				case ev := <-q.ch:
					handle(ev)
				default:
					return
				}
			}
		}
	}
}
