package fixcore

import (
	"sync"

	"futures-gateway/internal/fixwire"
)

// Registry maps SessionID to Session, guarded by a single mutex (the
// sessions map itself is small and short-lived relative to per-message
// traffic, so fine-grained locking would not pay for itself).
type Registry struct {
	mu       sync.RWMutex
	sessions map[SessionID]*Session
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[SessionID]*Session)}
}

// Register adds or replaces the Session for id.
func (r *Registry) Register(id SessionID, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = s
}

// Unregister removes the Session for id, if present.
func (r *Registry) Unregister(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Get returns the Session for id, if registered.
func (r *Registry) Get(id SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// SendMessage looks up id, verifies the session is running, and hands msg to
// it. Absent or stopped sessions fail the send silently rather than raising;
// callers that need to know should check Get themselves.
func (r *Registry) SendMessage(id SessionID, msg fixwire.Message) bool {
	s, ok := r.Get(id)
	if !ok || !s.IsRunning() {
		return false
	}
	s.Send(msg)
	return true
}

// ForEachSession snapshots the registry under lock, then invokes fn for each
// session outside the lock, so fn may safely call back into the registry
// (e.g. Unregister) without deadlocking.
func (r *Registry) ForEachSession(fn func(id SessionID, s *Session)) {
	r.mu.RLock()
	snapshot := make(map[SessionID]*Session, len(r.sessions))
	for k, v := range r.sessions {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	for id, s := range snapshot {
		fn(id, s)
	}
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
