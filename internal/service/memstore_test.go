package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"deepgpt/internal/domain"
	"deepgpt/internal/repository"
)

// memStore implementa ambos repositorios en memoria para los tests del paquete.
type memStore struct {
	mu        sync.Mutex
	sessions  map[string]domain.Session
	messages  []domain.Message
	nextID    int64
	lastLimit int
	createErr error
	appendErr error
	listErr   error
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]domain.Session)}
}

func (m *memStore) Create(_ context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.sessions[session.ID]; ok {
		return repository.ErrDuplicateSession
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, repository.ErrUnknownSession
	}
	return s, nil
}

func (m *memStore) Touch(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return repository.ErrUnknownSession
	}
	s.UpdatedAt = at
	m.sessions[id] = s
	return nil
}

func (m *memStore) List(_ context.Context) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.SessionID != id {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

func (m *memStore) Append(_ context.Context, message domain.Message) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return domain.Message{}, m.appendErr
	}
	if _, ok := m.sessions[message.SessionID]; !ok {
		return domain.Message{}, repository.ErrUnknownSession
	}
	m.nextID++
	message.ID = m.nextID
	m.messages = append(m.messages, message)
	return message, nil
}

func (m *memStore) ListRecent(_ context.Context, sessionID string, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]domain.Message{}, out...), nil
}

func (m *memStore) ListBySessionID(_ context.Context, sessionID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Message{}
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) DeleteBySessionID(_ context.Context, sessionID, model string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.SessionID == sessionID && (model == "" || msg.Model == model) {
			n++
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
	return n, nil
}

func (m *memStore) seed(sessionID string, msgs ...domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		m.sessions[sessionID] = domain.Session{ID: sessionID, Title: sessionID}
	}
	for _, msg := range msgs {
		m.nextID++
		msg.ID = m.nextID
		msg.SessionID = sessionID
		m.messages = append(m.messages, msg)
	}
}

var (
	_ repository.SessionRepository = (*memStore)(nil)
	_ repository.MessageRepository = (*memStore)(nil)
)
