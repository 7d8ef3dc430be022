package watchers

import (
	"sync"
)

// Handler receives an event payload.
type Handler[P any] func(P)

type entry[P any] struct {
	id      uint64
	handler Handler[P]
}

// Emitter dispatches payloads of type P to handlers registered by event name.
//
// The zero value is ready to use.
type Emitter[P any] struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[string][]entry[P]
}

// New creates an empty [Emitter].
func New[P any]() *Emitter[P] {
	return &Emitter[P]{}
}

// On registers handler for event and returns its unsubscribe function.
func (e *Emitter[P]) On(event string, handler Handler[P]) func() {
	e.mu.Lock()
	if e.handlers == nil {
		e.handlers = make(map[string][]entry[P])
	}
	e.next++
	id := e.next
	e.handlers[event] = append(e.handlers[event], entry[P]{id: id, handler: handler})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(event, id) })
	}
}

// Once registers handler to run for the next emission of event only.
func (e *Emitter[P]) Once(event string, handler Handler[P]) func() {
	var unsubscribe func()
	var fired sync.Once
	unsubscribe = e.On(event, func(p P) {
		fired.Do(func() {
			unsubscribe()
			handler(p)
		})
	})
	return unsubscribe
}

// Emit calls every handler registered for event, in registration order.
func (e *Emitter[P]) Emit(event string, payload P) {
	e.mu.RLock()
	registered := e.handlers[event]
	handlers := make([]Handler[P], len(registered))
	for i, en := range registered {
		handlers[i] = en.handler
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}

// Count returns the number of handlers registered for event.
func (e *Emitter[P]) Count(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}

// Clear removes every handler for every event.
func (e *Emitter[P]) Clear() {
	e.mu.Lock()
	e.handlers = nil
	e.mu.Unlock()
}

func (e *Emitter[P]) remove(event string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	registered := e.handlers[event]
	for i, en := range registered {
		if en.id != id {
			continue
		}
		kept := make([]entry[P], 0, len(registered)-1)
		kept = append(kept, registered[:i]...)
		kept = append(kept, registered[i+1:]...)
		if len(kept) == 0 {
			delete(e.handlers, event)
		} else {
			e.handlers[event] = kept
		}
		return
	}
}

// Change is implemented by payloads that can tell structural changes
// (items added or removed) from in-place mutations.
type Change interface {
	Structural() bool
}

// Options configures [Subscribe].
type Options struct {
	// OnlyStructural skips payloads whose Structural method reports false.
	OnlyStructural bool
}

// Subscribe registers handler on e for event with the given filtering options.
func Subscribe[P Change](e *Emitter[P], event string, handler Handler[P], opts Options) func() {
	if !opts.OnlyStructural {
		return e.On(event, handler)
	}
	return e.On(event, func(p P) {
		if p.Structural() {
			handler(p)
		}
	})
}
