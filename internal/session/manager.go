// Package session manages the lifecycle of editor sessions. A session is
// one mounted editor: its own graph store and interaction coordinator.
package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/flowboard/internal/apperr"
	"github.com/starford/flowboard/internal/editor"
	"github.com/starford/flowboard/internal/graph"
)

// Publisher receives session events for delivery to clients.
type Publisher interface {
	PublishSession(sessionID, eventType string, data any)
}

// Session is one mounted editor.
type Session struct {
	ID        string
	CreatedAt time.Time
	Store     *graph.Store
	Editor    *editor.Coordinator

	unsubscribe func()
}

// Info is the public summary of a session.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
}

// Info summarises the session.
func (s *Session) Info() Info {
	g := s.Store.Snapshot()
	return Info{ID: s.ID, CreatedAt: s.CreatedAt, Nodes: len(g.Nodes), Edges: len(g.Edges)}
}

// Manager opens, looks up and closes sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxOpen  int
	pub      Publisher
	logger   *slog.Logger
}

// NewManager creates a manager. maxOpen <= 0 means unlimited; pub may be nil.
func NewManager(maxOpen int, pub Publisher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		maxOpen:  maxOpen,
		pub:      pub,
		logger:   logger,
	}
}

// Open mounts a new editor session.
func (m *Manager) Open() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxOpen > 0 && len(m.sessions) >= m.maxOpen {
		return nil, fmt.Errorf("open session: %d sessions open: %w", len(m.sessions), apperr.ErrLimit)
	}

	id := uuid.NewString()
	store := graph.NewStore()
	s := &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Store:     store,
		Editor: editor.NewCoordinator(store, func(ev editor.Event) {
			m.publish(id, ev.Type, ev.Data)
		}),
	}
	s.unsubscribe = store.Subscribe(func(ch graph.Change) {
		m.publish(id, "graph.changed", ch)
	})
	s.Editor.Mount()
	m.sessions[id] = s

	m.logger.Info("session opened", slog.String("session", id), slog.Int("open", len(m.sessions)))
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return s, nil
}

// List returns summaries of all open sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Info())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Close unmounts a session. The coordinator is torn down so the focus
// lock is released even if the client vanished mid-edit.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}

	s.Editor.Teardown()
	s.unsubscribe()
	m.publish(id, "session.closed", map[string]string{"id": id})
	m.logger.Info("session closed", slog.String("session", id))
	return nil
}

// CloseAll tears down every open session.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		_ = m.Close(id)
	}
}

func (m *Manager) publish(id, typ string, data any) {
	if m.pub != nil {
		m.pub.PublishSession(id, typ, data)
	}
}
