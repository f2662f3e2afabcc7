package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"deepgpt/internal/domain"
	"deepgpt/internal/llm"
	"deepgpt/internal/repository"
)

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrEmptyMessage             = errors.New("message must not be empty")
	ErrUnknownModel             = errors.New("unsupported model type")
	ErrUnknownSession           = errors.New("unknown session")
)

// IsValidationError indica si err se debe a una entrada inválida del cliente.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrUnknownModel) ||
		errors.Is(err, ErrUnknownSession)
}

// ChatInput es la petición de un turno de chat.
type ChatInput struct {
	Message   string
	SessionID string
	ModelType string
	ClientIP  string
}

// ChatOutput es el resultado de un turno. Las fallas del proveedor viajan con Success=false.
type ChatOutput struct {
	Success   bool   `json:"success"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
	Model     string `json:"model,omitempty"`
	ModelType string `json:"model_type"`
	SessionID string `json:"session_id"`
}

// ChatService orquesta persistencia, construcción de contexto y despacho al proveedor.
type ChatService struct {
	logger    *zap.Logger
	sessions  repository.SessionRepository
	messages  repository.MessageRepository
	contexts  ContextService
	providers *llm.Registry
	locker    *SessionLocker
	limiter   ChatRateLimiter
	now       func() time.Time
}

func NewChatService(
	logger *zap.Logger,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	contexts ContextService,
	providers *llm.Registry,
	locker *SessionLocker,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewSessionLocker()
	}
	return &ChatService{
		logger:    logger,
		sessions:  sessions,
		messages:  messages,
		contexts:  contexts,
		providers: providers,
		locker:    locker,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithRateLimiter activa el límite de turnos por cliente y sesión. Con nil no se limita.
func (s *ChatService) WithRateLimiter(limiter ChatRateLimiter) *ChatService {
	s.limiter = limiter
	return s
}

// HandleChat procesa un turno completo. El turno del usuario queda persistido aunque el proveedor falle.
func (s *ChatService) HandleChat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if s == nil || s.sessions == nil || s.messages == nil || s.contexts == nil {
		return ChatOutput{}, ErrChatServiceNotConfigured
	}

	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ChatOutput{}, ErrEmptyMessage
	}

	rawModel := strings.TrimSpace(in.ModelType)
	if rawModel == "" {
		rawModel = domain.DefaultModelType.String()
	}
	model, err := domain.ParseModelType(rawModel)
	if err != nil {
		return ChatOutput{}, fmt.Errorf("%w: %q", ErrUnknownModel, in.ModelType)
	}
	client, ok := s.providers.Get(model)
	if !ok {
		return ChatOutput{}, fmt.Errorf("%w: %q", ErrUnknownModel, in.ModelType)
	}

	sessionID := strings.TrimSpace(in.SessionID)
	if s.limiter != nil {
		if d := s.limiter.Allow(ctx, in.ClientIP, sessionID); !d.Allowed {
			s.logger.Warn("chat turn rate limited",
				zap.String("client_ip", in.ClientIP),
				zap.String("session_id", sessionID),
				zap.Duration("retry_after", d.RetryAfter),
			)
			return ChatOutput{}, &RateLimitError{RetryAfter: d.RetryAfter}
		}
	}

	if sessionID == "" {
		sessionID, err = s.createSession(ctx, message)
		if err != nil {
			return ChatOutput{}, err
		}
	} else if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrUnknownSession) {
			return ChatOutput{}, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
		}
		return ChatOutput{}, fmt.Errorf("get session: %w", err)
	}

	unlock := s.locker.Lock(sessionID)
	defer unlock()

	_, err = s.messages.Append(ctx, domain.Message{
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   message,
		Model:     model.String(),
		Timestamp: s.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrUnknownSession) {
			return ChatOutput{}, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
		}
		return ChatOutput{}, fmt.Errorf("persist user message: %w", err)
	}

	history, err := s.contexts.BuildContext(ctx, sessionID, model)
	if err != nil {
		return ChatOutput{}, fmt.Errorf("build context: %w", err)
	}

	// La llamada al proveedor no se cancela si el cliente corta la conexión.
	result := client.Chat(context.WithoutCancel(ctx), message, history)
	if !result.Success {
		s.logger.Warn("provider call failed",
			zap.String("session_id", sessionID),
			zap.String("model_type", model.String()),
			zap.String("error", result.Error),
		)
		return ChatOutput{
			Success:   false,
			Error:     result.Error,
			ModelType: model.String(),
			SessionID: sessionID,
		}, nil
	}

	_, err = s.messages.Append(ctx, domain.Message{
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   result.Response,
		Model:     model.String(),
		Timestamp: s.now(),
	})
	if err != nil {
		return ChatOutput{}, fmt.Errorf("persist assistant message: %w", err)
	}
	if err := s.sessions.Touch(ctx, sessionID, s.now()); err != nil {
		return ChatOutput{}, fmt.Errorf("touch session: %w", err)
	}

	s.logger.Info("chat turn completed",
		zap.String("session_id", sessionID),
		zap.String("model_type", model.String()),
		zap.Int("history", len(history)),
	)

	return ChatOutput{
		Success:   true,
		Response:  result.Response,
		Model:     result.Model,
		ModelType: model.String(),
		SessionID: sessionID,
	}, nil
}

func (s *ChatService) createSession(ctx context.Context, firstMessage string) (string, error) {
	now := s.now()
	session := domain.Session{
		ID:        uuid.NewString(),
		Title:     domain.SessionTitle(firstMessage),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("session created", zap.String("session_id", session.ID), zap.String("title", session.Title))
	return session.ID, nil
}
