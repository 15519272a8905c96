package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherRoutesByType(t *testing.T) {
	d := NewDispatcher()
	var trades, quotes int
	d.Register(EventTrade, func(Event) error { trades++; return nil })
	d.Register(EventQuote, func(Event) error { quotes++; return nil })

	d.Dispatch(Event{Type: EventTrade})
	d.Dispatch(Event{Type: EventTrade})
	d.Dispatch(Event{Type: EventQuote})

	assert.Equal(t, 2, trades)
	assert.Equal(t, 1, quotes)
}

func TestDispatcherIgnoresHeartbeat(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Register(EventHeartbeat, func(Event) error { called = true; return nil })
	d.Dispatch(Event{Type: EventHeartbeat})
	assert.False(t, called)
}

func TestDispatcherDropsUnknownType(t *testing.T) {
	d := NewDispatcher()
	assert.NotPanics(t, func() {
		d.Dispatch(Event{Type: EventType("mystery")})
	})
}

func TestDispatcherHandlerErrorDoesNotStopOthers(t *testing.T) {
	d := NewDispatcher()
	var second bool
	d.Register(EventTrade, func(Event) error { return errors.New("boom") })
	d.Register(EventTrade, func(Event) error { second = true; return nil })

	d.Dispatch(Event{Type: EventTrade})
	assert.True(t, second)
}
