package viewer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/orgball2608/storyreel/internal/domain"
	"github.com/orgball2608/storyreel/pkg/logger"
)

// Manager keeps the live viewer sessions and the grouping they share.
type Manager struct {
	opts Options
	log  logger.Logger

	// setMu orders concurrent listings so sessions never end up on an older
	// grouping than m.groups.
	setMu sync.Mutex

	mu       sync.RWMutex
	groups   *Groups
	sessions map[string]*Session
	onRemove []func(sessionID string)
}

func NewManager(opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		opts:     opts,
		log:      opts.Logger.WithComponent("viewer"),
		groups:   BuildGroups(nil, nil),
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Create(viewerID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	s := NewSession(id, viewerID, m.groups, m.opts)
	m.sessions[id] = s

	m.log.Info("Viewer session created", "session_id", id, "viewer_id", viewerID)
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Shutdown()
	m.removed(id)
	m.log.Info("Viewer session removed", "session_id", id)
	return nil
}

// OnRemove registers fn to run after a session is removed or evicted.
func (m *Manager) OnRemove(fn func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemove = append(m.onRemove, fn)
}

func (m *Manager) removed(id string) {
	m.mu.RLock()
	hooks := m.onRemove
	m.mu.RUnlock()

	for _, fn := range hooks {
		fn(id)
	}
}

// SetStories regroups a fresh listing once and hands it to every session.
func (m *Manager) SetStories(stories []domain.Story) {
	m.setMu.Lock()
	defer m.setMu.Unlock()

	g := BuildGroups(stories, m.log)

	m.mu.Lock()
	m.groups = g
	sessions := m.snapshotLocked()
	m.mu.Unlock()

	for _, s := range sessions {
		s.SetGroups(g)
	}
	m.log.Debug("Story groups rebuilt", "authors", g.Len(), "sessions", len(sessions))
}

func (m *Manager) Groups() *Groups {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.groups
}

// Notify sends a transient notice to every connected session.
func (m *Manager) Notify(msg string) {
	m.mu.RLock()
	sessions := m.snapshotLocked()
	m.mu.RUnlock()

	for _, s := range sessions {
		s.Notice(msg)
	}
}

// EvictIdle drops sessions untouched for longer than ttl. Sessions with an
// attached stream are kept.
func (m *Manager) EvictIdle(ttl time.Duration) int {
	now := m.opts.Clock.Now()

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > ttl && !s.Watched() {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Shutdown()
		m.removed(s.ID())
	}
	if len(idle) > 0 {
		m.log.Info("Evicted idle viewer sessions", "count", len(idle))
	}
	return len(idle)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.snapshotLocked()
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Shutdown()
	}
}

func (m *Manager) snapshotLocked() []*Session {
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}
