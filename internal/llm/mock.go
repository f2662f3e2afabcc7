package llm

import (
	"context"
	"sync"
	"time"

	"deepgpt/internal/domain"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Result Result

	mu    sync.Mutex
	calls []MockCall
}

// MockCall registra los argumentos de una invocación.
type MockCall struct {
	Message string
	History []domain.ChatMessage
}

func (m *MockClient) Chat(ctx context.Context, message string, history []domain.ChatMessage) Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := append([]domain.ChatMessage(nil), history...)
	m.calls = append(m.calls, MockCall{Message: message, History: copied})
	res := m.Result
	if res.Timestamp.IsZero() {
		res.Timestamp = time.Now().UTC()
	}
	return res
}

// Calls devuelve una copia de las invocaciones recibidas.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}
