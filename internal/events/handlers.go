package events

import (
	"strings"
	"sync"

	"github.com/prudhvinik1/paymirror/internal/models"
)

// Handler is a post-commit callback for processed events. Handlers run after
// the event's processing transaction committed, so they never observe data
// that was subsequently rolled back.
type Handler func(event *models.EventRecord)

// HandlerRegistry holds (pattern, callback) registrations. Patterns match
// the exact event type or any dot-delimited prefix of it: a handler
// registered for "customer" fires for "customer.subscription.updated" too.
type HandlerRegistry struct {
	mu        sync.RWMutex
	global    []Handler
	byPattern map[string][]Handler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{byPattern: make(map[string][]Handler)}
}

// Register adds a handler for an event type or type prefix.
func (r *HandlerRegistry) Register(pattern string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPattern[pattern] = append(r.byPattern[pattern], handler)
}

// RegisterAll adds a handler that fires for every event. Global handlers are
// invoked before pattern handlers.
func (r *HandlerRegistry) RegisterAll(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, handler)
}

// Dispatch invokes every matching handler for the event, in order: global
// handlers first, then each qualified prefix of the event type from broadest
// to most specific ("customer", "customer.subscription",
// "customer.subscription.updated"), registration order within each group.
// All matches are invoked; there is no early termination.
func (r *HandlerRegistry) Dispatch(event *models.EventRecord) {
	r.mu.RLock()
	chain := make([]Handler, 0, len(r.global))
	chain = append(chain, r.global...)

	parts := event.Parts()
	for i := range parts {
		pattern := strings.Join(parts[:i+1], ".")
		chain = append(chain, r.byPattern[pattern]...)
	}
	r.mu.RUnlock()

	for _, handler := range chain {
		handler(event)
	}
}
