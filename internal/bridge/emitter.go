package bridge

import (
	"context"
	"sync"
)

// Emitter is the in-process implementation of the bridge event contract.
// The local bridge agent feeds it through the ingest endpoint; consumers
// subscribe with On/Off.
type Emitter struct {
	mu        sync.RWMutex
	connected bool
	nextSub   Subscription
	handlers  map[string]map[Subscription]Handler
}

// NewEmitter constructs an emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[string]map[Subscription]Handler),
	}
}

// Connect marks the bridge link established and emits the connected event.
func (e *Emitter) Connect(ctx context.Context) error {
	_ = ctx
	e.SetConnected(true)
	return nil
}

// IsConnected reports the last known bridge link state.
func (e *Emitter) IsConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

// SetConnected records link state and emits connected/disconnected.
func (e *Emitter) SetConnected(connected bool) {
	e.mu.Lock()
	changed := e.connected != connected
	e.connected = connected
	e.mu.Unlock()
	if !changed {
		return
	}
	if connected {
		e.Emit(EventConnected, nil)
	} else {
		e.Emit(EventDisconnected, nil)
	}
}

// On registers a handler for an event and returns its subscription.
func (e *Emitter) On(event string, handler Handler) Subscription {
	if event == "" || handler == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSub++
	sub := e.nextSub
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[Subscription]Handler)
	}
	e.handlers[event][sub] = handler
	return sub
}

// Off removes a handler registration.
func (e *Emitter) Off(event string, sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if registered, ok := e.handlers[event]; ok {
		delete(registered, sub)
	}
}

// Emit fans a payload out to every handler of the event.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.handlers[event]))
	for _, handler := range e.handlers[event] {
		handlers = append(handlers, handler)
	}
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(payload)
	}
}
