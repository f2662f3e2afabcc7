package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message es un turno persistido. Nunca se modifica después de insertarse.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatMessage es una entrada del payload enviado a un proveedor.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
