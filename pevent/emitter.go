// Package pevent implements the multi-listener pub/sub mixin used by tasks
// and pipelines. Subscription order is delivery order; emission is
// synchronous on the caller's goroutine.
package pevent

import (
	"reflect"
	"sync"

	"github.com/pidl-project/pidl/pidlerrors"
)

// Handler receives an event name plus the arguments passed to Emit.
type Handler func(event string, args ...interface{})

// Emitter is a thread-safe multi-listener event bus. The zero value is not
// usable; construct with New.
type Emitter struct {
	mu       sync.Mutex
	handlers map[string][]Handler
}

// New constructs an empty Emitter.
func New() *Emitter {
	return &Emitter{handlers: make(map[string][]Handler)}
}

// On subscribes handler to event. Subscription order is delivery order. A
// nil handler is rejected with an ArgumentError: a handler that can never
// be invoked is almost certainly a caller bug, not a no-op subscription.
func (e *Emitter) On(event string, handler Handler) error {
	if handler == nil {
		return pidlerrors.NewArgumentError("handler", "handler must be callable", nil)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], handler)
	return nil
}

// Emit invokes every handler subscribed to event, in subscription order, on
// the calling goroutine.
func (e *Emitter) Emit(event string, args ...interface{}) {
	e.mu.Lock()
	handlers := append([]Handler(nil), e.handlers[event]...)
	e.mu.Unlock()

	for _, h := range handlers {
		h(event, args...)
	}
}

// RemoveListener removes handler from event. Handlers are compared by the
// underlying code pointer, since Go func values are not otherwise
// comparable: handlers built from distinct function literals compare
// unequal, but every closure created from the same literal shares one code
// pointer, so removing one of them removes all of them from event.
func (e *Emitter) RemoveListener(event string, handler Handler) {
	if handler == nil {
		return
	}
	target := reflect.ValueOf(handler).Pointer()

	e.mu.Lock()
	defer e.mu.Unlock()
	existing := e.handlers[event]
	filtered := make([]Handler, 0, len(existing))
	for _, h := range existing {
		if reflect.ValueOf(h).Pointer() == target {
			continue
		}
		filtered = append(filtered, h)
	}
	e.handlers[event] = filtered
}

// ListenerCount returns the number of handlers currently subscribed to
// event. Primarily useful in tests verifying RemoveListener's idempotence.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event])
}
