package session

import "sync"

// Registry maps user ids to their sessions. Lookup is O(1) under a
// read-write mutex; each session carries its own lock so updates to
// distinct sessions never contend.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Ensure returns the session for userID, creating it when absent.
func (r *Registry) Ensure(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[userID]; ok {
		return sess
	}
	sess := newSession(userID)
	r.sessions[userID] = sess
	return sess
}

// Get returns the session for userID or a NotFoundError.
func (r *Registry) Get(userID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[userID]
	if !ok {
		return nil, &NotFoundError{UserID: userID}
	}
	return sess, nil
}

// Reset clears the session for userID back to not ready. Unknown users get
// a fresh, empty session so reset is idempotent.
func (r *Registry) Reset(userID string) *Session {
	sess := r.Ensure(userID)
	sess.Reset()
	return sess
}
