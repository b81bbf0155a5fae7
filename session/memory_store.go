package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore keeps snapshots in process memory. Used by tests and one-shot runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("memory session store: missing id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	touch(sess)
	m.sessions[sess.ID] = snapshot(sess)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	return snapshot(sess), nil
}

func (m *MemoryStore) List(_ context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, Summary{ID: s.ID, LastUpdated: s.LastUpdated})
	}
	sortSummaries(out)
	return out, nil
}

func snapshot(s *Session) *Session {
	return &Session{
		ID:           s.ID,
		Conversation: s.Conversation.Clone(),
		LastUpdated:  s.LastUpdated,
	}
}
