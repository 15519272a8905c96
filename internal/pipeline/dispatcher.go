package pipeline

import (
	"sync"

	"github.com/berinsbackup-web/AITradingBot/internal/logger"
)

// Handler consumes one event. Returned errors are logged by the
// dispatcher; one failing handler never blocks the others.
type Handler func(Event) error

// Dispatcher fans events out to the handlers registered for their
// type. Registration normally happens during wiring, before events
// flow, but is safe at any time.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventType][]Handler)}
}

func (d *Dispatcher) Register(t EventType, h Handler) {
	d.mu.Lock()
	d.handlers[t] = append(d.handlers[t], h)
	d.mu.Unlock()
}

// Dispatch routes one event. Heartbeats are liveness-only and never
// dispatched; events with no registered handler are dropped with a
// debug line.
func (d *Dispatcher) Dispatch(ev Event) {
	if ev.Type == EventHeartbeat {
		return
	}

	d.mu.RLock()
	handlers := d.handlers[ev.Type]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		logger.Debugf("pipeline: no handler for event type %q, dropping", ev.Type)
		return
	}
	for _, h := range handlers {
		if err := h(ev); err != nil {
			logger.Errorf("pipeline: handler for %q failed: %v", ev.Type, err)
		}
	}
}
