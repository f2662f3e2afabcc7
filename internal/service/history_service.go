package service

import (
	"context"
	"errors"
	"strings"

	"deepgpt/internal/domain"
	"deepgpt/internal/repository"
)

var ErrHistoryServiceNotConfigured = errors.New("history service not configured")

// HistoryService expone lectura y borrado de sesiones para la API.
type HistoryService struct {
	sessions repository.SessionRepository
	messages repository.MessageRepository
	locker   *SessionLocker
}

func NewHistoryService(sessions repository.SessionRepository, messages repository.MessageRepository, locker *SessionLocker) *HistoryService {
	if locker == nil {
		locker = NewSessionLocker()
	}
	return &HistoryService{sessions: sessions, messages: messages, locker: locker}
}

func (s *HistoryService) ListSessions(ctx context.Context) ([]domain.Session, error) {
	if s == nil || s.sessions == nil {
		return nil, ErrHistoryServiceNotConfigured
	}
	return s.sessions.List(ctx)
}

// Messages devuelve el historial completo de la sesión; una sesión desconocida no tiene mensajes.
func (s *HistoryService) Messages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if s == nil || s.messages == nil {
		return nil, ErrHistoryServiceNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return []domain.Message{}, nil
	}
	return s.messages.ListBySessionID(ctx, sessionID)
}

// DeleteSession es idempotente.
func (s *HistoryService) DeleteSession(ctx context.Context, sessionID string) error {
	if s == nil || s.sessions == nil {
		return ErrHistoryServiceNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	unlock := s.locker.Lock(sessionID)
	defer unlock()
	return s.sessions.Delete(ctx, sessionID)
}

// ClearSession borra los mensajes de la sesión (opcionalmente solo los de un modelo) y conserva la sesión.
func (s *HistoryService) ClearSession(ctx context.Context, sessionID, modelType string) (int64, error) {
	if s == nil || s.messages == nil {
		return 0, ErrHistoryServiceNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, nil
	}
	model := ""
	if strings.TrimSpace(modelType) != "" {
		m, err := domain.ParseModelType(modelType)
		if err != nil {
			return 0, ErrUnknownModel
		}
		model = m.String()
	}
	unlock := s.locker.Lock(sessionID)
	defer unlock()
	return s.messages.DeleteBySessionID(ctx, sessionID, model)
}
