package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCredentialsRequired = errors.New("username and password are required")
	ErrSessionNotFound     = errors.New("session not found")
	ErrUnknownPersona      = errors.New("unknown persona")
)

// Registry holds the live sessions of this process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry bootstraps an empty in-memory registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Login opens a session for username. Any non-empty pair is accepted; the
// password is not verified or stored.
func (r *Registry) Login(_ context.Context, username, password string) (*Session, error) {
	owner := strings.TrimSpace(username)
	if owner == "" || strings.TrimSpace(password) == "" {
		return nil, ErrCredentialsRequired
	}

	s := newSession(uuid.NewString(), owner, time.Now().UTC())

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	return s, nil
}

// Get retrieves a session by identifier.
func (r *Registry) Get(_ context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Logout discards a session with all its turns and ledger entries.
func (r *Registry) Logout(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
