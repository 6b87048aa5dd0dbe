package session

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskstack/internal/auth"
	"taskstack/internal/todo"
)

// StoreFactory builds the account store for a newly created session.
type StoreFactory func(sessionID string) auth.Store

// TeardownFunc releases resources held for a session id.
type TeardownFunc func(ctx context.Context, sessionID string) error

// Session is the state owned by one chat: its account directory, login state
// and one task history per user that has logged in here.
type Session struct {
	ID     string
	ChatID int64

	mu       sync.Mutex
	auth     *Controller
	lists    map[string]*todo.History
	lastSeen time.Time
	// dead is set by Sweep once the session has left the manager.
	dead bool
}

// Auth returns the session's login controller. Callers must hold the session
// via Manager.With.
func (s *Session) Auth() *Controller {
	return s.auth
}

// Tasks returns the history of the logged-in user, creating it on first use.
// ok is false when nobody is logged in.
func (s *Session) Tasks() (*todo.History, bool) {
	user, ok := s.auth.CurrentUser()
	if !ok {
		return nil, false
	}
	h, exists := s.lists[user]
	if !exists {
		h = todo.NewHistory()
		s.lists[user] = h
	}
	return h, true
}

// Manager owns every live Session keyed by chat id.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	stores   StoreFactory
	teardown TeardownFunc
	now      func() time.Time
}

// NewManager creates a manager. A nil stores factory gives each session its
// own in-memory account store; teardown may be nil.
func NewManager(stores StoreFactory, teardown TeardownFunc) *Manager {
	if stores == nil {
		stores = func(string) auth.Store { return auth.NewMemoryStore() }
	}
	return &Manager{
		sessions: make(map[int64]*Session),
		stores:   stores,
		teardown: teardown,
		now:      time.Now,
	}
}

// With runs fn with exclusive access to the chat's session, creating it if needed.
func (m *Manager) With(chatID int64, fn func(s *Session) error) error {
	for {
		s := m.get(chatID)
		s.mu.Lock()
		if s.dead {
			// Swept between get and Lock; the next get creates a fresh one.
			s.mu.Unlock()
			continue
		}
		s.lastSeen = m.now()
		err := fn(s)
		s.mu.Unlock()
		return err
	}
}

// Authenticated calls fn for every session that currently has a logged-in user.
// fn runs under the session lock and must not call back into the Manager.
func (m *Manager) Authenticated(fn func(s *Session, username string, tasks *todo.History)) {
	for _, s := range m.snapshot() {
		s.mu.Lock()
		if s.dead {
			s.mu.Unlock()
			continue
		}
		if user, ok := s.auth.CurrentUser(); ok {
			tasks, _ := s.Tasks()
			fn(s, user, tasks)
		}
		s.mu.Unlock()
	}
}

// Sweep tears down sessions idle for longer than idle. It returns how many were removed.
func (m *Manager) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	var expired []*Session
	for chatID, s := range m.sessions {
		s.mu.Lock()
		stale := s.lastSeen.Before(cutoff)
		if stale {
			s.dead = true
		}
		s.mu.Unlock()
		if stale {
			expired = append(expired, s)
			delete(m.sessions, chatID)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		if m.teardown == nil {
			continue
		}
		if err := m.teardown(ctx, s.ID); err != nil {
			log.Printf("teardown session %s: %v", s.ID, err)
		}
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) get(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		return s
	}
	id := uuid.New().String()
	s := &Session{
		ID:       id,
		ChatID:   chatID,
		auth:     NewController(auth.NewDirectory(m.stores(id), nil)),
		lists:    make(map[string]*todo.History),
		lastSeen: m.now(),
	}
	m.sessions[chatID] = s
	log.Printf("[info] session created chat=%d id=%s", chatID, id)
	return s
}

func (m *Manager) snapshot() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out
}
