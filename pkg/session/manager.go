package session

import (
	"sync"
	"time"
)

// Manager is the in-process lookup table of live sessions, grounded on the
// teacher's session.Manager (map + sync.RWMutex). The Memory Store
// (pkg/memory) is the durable backing store; Manager caches *State so a
// session's mutex (and therefore its "one turn at a time" contract) is
// shared by every caller within this process, not recreated per lookup.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*State)}
}

// GetOrCreate returns the live *State for sessionID, creating one if this
// is the first turn (spec §3, "Created on first turn").
func (m *Manager) GetOrCreate(sessionID, customerID string) *State {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s
	}
	s = New(sessionID, customerID)
	m.sessions[sessionID] = s
	return s
}

// Get returns the live state for sessionID, or nil if not loaded.
func (m *Manager) Get(sessionID string) *State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

// Put installs a state loaded from durable storage (e.g. after a restart)
// into the manager, keyed by its SessionID.
func (m *Manager) Put(s *State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s
}

// Drop removes a session from the manager, used on handoff/close (spec §4.3
// "clear_session", §4.7 Human Handoff).
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// List returns a snapshot of every live session, safe for iteration outside
// the manager's lock.
func (m *Manager) List() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]State, 0, len(m.sessions))
	for _, s := range m.sessions {
		s.Lock()
		out = append(out, s.Snapshot())
		s.Unlock()
	}
	return out
}

// EvictIdle drops every live session whose last update is older than
// maxIdle, bounding the manager's memory growth. It only removes the
// in-process cache entry — the durable record in the Memory Store is left
// untouched, since spec §4.3 limits durable deletion to an explicit
// clear_session call. A session evicted here is simply reloaded from the
// Memory Store (pkg/api's GetSession fallback) the next time it's needed.
func (m *Manager) EvictIdle(maxIdle time.Duration, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		s.Lock()
		idle := now.Sub(s.UpdatedAt)
		s.Unlock()

		if idle > maxIdle {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}
