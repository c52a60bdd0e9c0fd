package browser

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/azamatb/objbrowse/internal/backend"
)

// ErrSessionNotFound signals an unknown or already closed session.
var ErrSessionNotFound = errors.New("session not found")

// ClientFactory builds a backend client for a session. A nil credentials
// blob means the shared default client; the blob is forwarded opaquely.
type ClientFactory func(creds *backend.Credentials) (backend.Client, error)

// Manager owns the live sessions, one per logical browser instance. There
// is no cross-session sharing: each session's state has a single owner.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	factory  ClientFactory
	opts     Options
}

// NewManager builds a session manager.
func NewManager(factory ClientFactory, opts Options) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		factory:  factory,
		opts:     opts,
	}
}

// Create opens a new session, optionally parameterized by credentials.
func (m *Manager) Create(creds *backend.Credentials) (*Session, error) {
	client, err := m.factory(creds)
	if err != nil {
		return nil, err
	}

	session := NewSession(client, m.opts)
	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
	return session, nil
}

// Get returns the session by id.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close tears down the session: in-flight loads stop mutating state and the
// selection is cleared.
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
