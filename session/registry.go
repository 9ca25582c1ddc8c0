package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/catalog"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/executor"
)

// Registry tracks live sessions by ID. The registry itself is safe for
// concurrent use; each individual session still belongs to a single caller.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	catalog *catalog.Catalog
	exec    *executor.Executor
}

// NewRegistry creates an empty session registry
func NewRegistry(cat *catalog.Catalog, exec *executor.Executor) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		catalog:  cat,
		exec:     exec,
	}
}

// Create starts a new session and registers it
func (r *Registry) Create() *Session {
	s := New(r.catalog, r.exec)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session with the given ID
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove discards a session
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
