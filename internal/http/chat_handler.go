package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deepgpt/internal/domain"
	"deepgpt/internal/llm"
	"deepgpt/internal/service"
)

// ChatHandler mantiene dependencias para los endpoints de chat, historial y estado.
type ChatHandler struct {
	logger    *zap.Logger
	chatServ  *service.ChatService
	history   *service.HistoryService
	providers *llm.Registry
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(
	logger *zap.Logger,
	chatServ *service.ChatService,
	history *service.HistoryService,
	providers *llm.Registry,
) *ChatHandler {
	return &ChatHandler{
		logger:    logger,
		chatServ:  chatServ,
		history:   history,
		providers: providers,
	}
}

// Chat maneja POST /api/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
		ModelType string `json:"model_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	out, err := h.chatServ.HandleChat(c.Request.Context(), service.ChatInput{
		Message:   req.Message,
		SessionID: req.SessionID,
		ModelType: req.ModelType,
		ClientIP:  c.ClientIP(),
	})
	if err != nil {
		var limited *service.RateLimitError
		switch {
		case errors.As(err, &limited):
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
			c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "too many requests"})
		case errors.Is(err, service.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "message must not be empty"})
		case errors.Is(err, service.ErrUnknownModel):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unsupported model type: " + req.ModelType})
		case errors.Is(err, service.ErrUnknownSession):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown session: " + req.SessionID})
		default:
			h.logger.Error("chat failed", zap.Error(err), zap.String("session_id", req.SessionID))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, out)
}

// ListSessions maneja GET /api/history.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.history.ListSessions(c.Request.Context())
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": sessions})
}

// GetHistory maneja GET /api/history/:session_id.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("session_id")
	messages, err := h.history.Messages(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("get history failed", zap.Error(err), zap.String("session_id", sessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

// NewSession maneja POST /api/session/new. La sesión real se crea con el primer mensaje.
func (h *ChatHandler) NewSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteSession maneja DELETE /api/session/:session_id.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.history.DeleteSession(c.Request.Context(), sessionID); err != nil {
		h.logger.Error("delete session failed", zap.Error(err), zap.String("session_id", sessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not delete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Clear maneja POST /api/clear.
func (h *ChatHandler) Clear(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
		ModelType string `json:"model_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid clear request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request"})
		return
	}

	removed, err := h.history.ClearSession(c.Request.Context(), req.SessionID, req.ModelType)
	if err != nil {
		if errors.Is(err, service.ErrUnknownModel) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unsupported model type: " + req.ModelType})
			return
		}
		h.logger.Error("clear session failed", zap.Error(err), zap.String("session_id", req.SessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not clear session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "conversation cleared", "removed": removed})
}

// Status maneja GET /api/status.
func (h *ChatHandler) Status(c *gin.Context) {
	body := gin.H{
		"status":    "running",
		"timestamp": time.Now().UTC(),
	}
	for _, m := range domain.ModelTypes {
		body[strings.ToLower(m.String())+"_available"] = h.providers.Available(m)
	}
	c.JSON(http.StatusOK, body)
}
