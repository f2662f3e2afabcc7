package domain

import "time"

// Session es un hilo de conversación persistido.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	sessionTitleMaxRunes = 10
	sessionTitleEllipsis = "..."
)

// SessionTitle deriva el título de una sesión a partir del primer mensaje del usuario.
func SessionTitle(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) <= sessionTitleMaxRunes {
		return firstMessage
	}
	return string(runes[:sessionTitleMaxRunes]) + sessionTitleEllipsis
}
