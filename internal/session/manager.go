package session

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ErrNotFound is returned for an unknown or expired session id.
var ErrNotFound = errors.New("session not found")

// Manager keeps live sessions and closes them once idle for the TTL.
type Manager struct {
	deps     Deps
	sessions *cache.Cache
}

// NewManager creates a manager whose sessions expire after idleTTL without use.
func NewManager(deps Deps, idleTTL time.Duration) *Manager {
	c := cache.New(idleTTL, idleTTL)
	c.OnEvicted(func(id string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Close()
			log.Printf("Session %s closed", id)
		}
	})
	return &Manager{deps: deps, sessions: c}
}

// Create opens a session loaded at path. A non-empty visitorID resumes that
// visitor's persisted storage, like reopening the site in the same browser;
// otherwise a new visitor id is issued.
func (m *Manager) Create(path, visitorID string) (*Session, error) {
	if visitorID != "" {
		if _, err := uuid.Parse(visitorID); err != nil {
			return nil, fmt.Errorf("invalid visitor id %q: %w", visitorID, err)
		}
	} else {
		visitorID = uuid.Must(uuid.NewV7()).String()
	}
	if path == "" {
		path = "/"
	}

	id := uuid.Must(uuid.NewV7()).String()
	s, err := newSession(id, visitorID, path, m.deps)
	if err != nil {
		return nil, err
	}
	m.sessions.Set(id, s, cache.DefaultExpiration)
	return s, nil
}

// Get returns a live session and extends its lifetime.
func (m *Manager) Get(id string) (*Session, error) {
	v, found := m.sessions.Get(id)
	if !found {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	m.sessions.Set(id, v, cache.DefaultExpiration)
	return v.(*Session), nil
}

// Close ends a session immediately.
func (m *Manager) Close(id string) {
	m.sessions.Delete(id)
}

// CloseAll ends every session, for shutdown.
func (m *Manager) CloseAll() {
	for id := range m.sessions.Items() {
		m.sessions.Delete(id)
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.ItemCount()
}
