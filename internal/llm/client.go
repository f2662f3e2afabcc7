package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"deepgpt/internal/domain"
)

// ErrCredentialMissing es el texto devuelto cuando el proveedor no tiene API key.
const ErrCredentialMissing = "credential missing"

// Result es la respuesta normalizada de un proveedor. Los errores viajan como datos.
type Result struct {
	Success   bool      `json:"success"`
	Response  string    `json:"response,omitempty"`
	Model     string    `json:"model,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatClient define la interfaz uniforme de los adaptadores de proveedor.
type ChatClient interface {
	Chat(ctx context.Context, message string, history []domain.ChatMessage) Result
}

// HTTPClient implementa ChatClient usando la API de OpenAI-compatible.
type HTTPClient struct {
	cfg    ProviderConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPClient construye un cliente HTTP apuntando a la API de chat completions del proveedor.
func NewHTTPClient(cfg ProviderConfig, logger *zap.Logger) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("provider", string(cfg.Type))),
	}
}

// Configured indica si el proveedor tiene credencial.
func (c *HTTPClient) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

func (c *HTTPClient) Chat(ctx context.Context, message string, history []domain.ChatMessage) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("llm adapter panic", zap.Any("panic", r))
			res = failure(fmt.Sprintf("unexpected adapter failure: %v", r))
		}
	}()

	if !c.Configured() {
		return failure(ErrCredentialMissing)
	}

	messages := make([]domain.ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: message})

	reqBody := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return failure(fmt.Sprintf("marshal request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return failure(fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("llm request failed", zap.Error(err))
		return failure(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("llm error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		return failure(fmt.Sprintf("status %d: %s", resp.StatusCode, string(respBody)))
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return failure(fmt.Sprintf("malformed response: %v", err))
	}
	if cr.Error != nil {
		return failure(fmt.Sprintf("llm api error: %s", cr.Error.Message))
	}
	if len(cr.Choices) == 0 {
		return failure("malformed response: no choices")
	}

	c.logger.Debug("llm response",
		zap.Duration("latency", time.Since(start)),
		zap.Int("history", len(history)),
	)

	return Result{
		Success:   true,
		Response:  cr.Choices[0].Message.Content,
		Model:     c.cfg.Model,
		Timestamp: time.Now().UTC(),
	}
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg, Timestamp: time.Now().UTC()}
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Stream      bool                 `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
