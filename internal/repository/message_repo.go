package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"deepgpt/internal/domain"
)

// MessageRepository define el contrato de persistencia para mensajes. Solo se agregan filas.
type MessageRepository interface {
	Append(ctx context.Context, message domain.Message) (domain.Message, error)
	ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	ListBySessionID(ctx context.Context, sessionID string) ([]domain.Message, error)
	DeleteBySessionID(ctx context.Context, sessionID, model string) (int64, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Append(ctx context.Context, message domain.Message) (domain.Message, error) {
	const query = `
		INSERT INTO messages (session_id, role, content, model, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		message.SessionID,
		message.Role,
		message.Content,
		message.Model,
		message.Timestamp,
	).Scan(&message.ID)
	if isPgCode(err, pgForeignKeyViolation) {
		return domain.Message{}, ErrUnknownSession
	}
	if err != nil {
		return domain.Message{}, storageErr("append message", err)
	}
	return message, nil
}

// ListRecent devuelve los últimos limit mensajes en orden cronológico.
func (r *PgMessageRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	const query = `
		SELECT id, session_id, role, content, model, timestamp
		FROM messages
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT $2
	`
	messages, err := r.query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, storageErr("list recent messages", err)
	}
	reverseMessages(messages)
	return messages, nil
}

func (r *PgMessageRepository) ListBySessionID(ctx context.Context, sessionID string) ([]domain.Message, error) {
	const query = `
		SELECT id, session_id, role, content, model, timestamp
		FROM messages
		WHERE session_id = $1
		ORDER BY id ASC
	`
	messages, err := r.query(ctx, query, sessionID)
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	return messages, nil
}

func (r *PgMessageRepository) DeleteBySessionID(ctx context.Context, sessionID, model string) (int64, error) {
	const query = `
		DELETE FROM messages
		WHERE session_id = $1 AND ($2 = '' OR model = $2)
	`
	tag, err := r.pool.Exec(ctx, query, sessionID, model)
	if err != nil {
		return 0, storageErr("clear messages", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgMessageRepository) query(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		err = rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Role,
			&msg.Content,
			&msg.Model,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func reverseMessages(messages []domain.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
