// Package session hands out per-session cart engines. Cart state lives
// only here, in process memory, for the lifetime of the session.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/example/grocer-shop/internal/domain/cart"
)

// EngineFactory builds a fresh engine for a new session.
type EngineFactory func(sessionID string) *cart.Engine

// Registry maps session IDs to their cart engines, creating engines
// lazily on first use.
type Registry struct {
	mu      sync.Mutex
	engines map[string]*cart.Engine
	factory EngineFactory
}

func NewRegistry(factory EngineFactory) *Registry {
	if factory == nil {
		panic("session: NewRegistry requires an engine factory")
	}
	return &Registry{
		engines: make(map[string]*cart.Engine),
		factory: factory,
	}
}

// Engine returns the engine owned by the given session, creating it if
// the session is new. The same session ID always yields the same
// engine instance.
func (r *Registry) Engine(sessionID string) *cart.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[sessionID]; ok {
		return e
	}
	e := r.factory(sessionID)
	r.engines[sessionID] = e
	return e
}

// End discards a session's engine and all its cart state.
func (r *Registry) End(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, sessionID)
}

// NewSessionID mints an identifier for an anonymous session.
func NewSessionID() string {
	return uuid.New().String()
}
