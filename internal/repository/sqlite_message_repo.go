package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/mattn/go-sqlite3"

	"deepgpt/internal/domain"
)

type SqliteMessageRepository struct {
	db *sql.DB
}

func NewSqliteMessageRepository(db *sql.DB) *SqliteMessageRepository {
	return &SqliteMessageRepository{db: db}
}

func (r *SqliteMessageRepository) Append(ctx context.Context, message domain.Message) (domain.Message, error) {
	const query = `
		INSERT INTO messages (session_id, role, content, model, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		message.SessionID,
		message.Role,
		message.Content,
		message.Model,
		message.Timestamp.UnixNano(),
	)
	if isSqliteConstraint(err, sqlite3.ErrConstraintForeignKey) {
		return domain.Message{}, ErrUnknownSession
	}
	if err != nil {
		return domain.Message{}, storageErr("append message", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Message{}, storageErr("append message", err)
	}
	message.ID = id
	return message, nil
}

// ListRecent devuelve los últimos limit mensajes en orden cronológico.
func (r *SqliteMessageRepository) ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	const query = `
		SELECT id, session_id, role, content, model, timestamp
		FROM messages
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	messages, err := r.query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, storageErr("list recent messages", err)
	}
	reverseMessages(messages)
	return messages, nil
}

func (r *SqliteMessageRepository) ListBySessionID(ctx context.Context, sessionID string) ([]domain.Message, error) {
	const query = `
		SELECT id, session_id, role, content, model, timestamp
		FROM messages
		WHERE session_id = ?
		ORDER BY id ASC
	`
	messages, err := r.query(ctx, query, sessionID)
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	return messages, nil
}

// DeleteBySessionID limpia los mensajes de una sesión; con model vacío borra todos.
func (r *SqliteMessageRepository) DeleteBySessionID(ctx context.Context, sessionID, model string) (int64, error) {
	const query = `
		DELETE FROM messages
		WHERE session_id = ? AND (? = '' OR model = ?)
	`
	res, err := r.db.ExecContext(ctx, query, sessionID, model, model)
	if err != nil {
		return 0, storageErr("clear messages", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("clear messages", err)
	}
	return n, nil
}

func (r *SqliteMessageRepository) query(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var (
			msg domain.Message
			ts  int64
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Model, &ts); err != nil {
			return nil, err
		}
		msg.Timestamp = time.Unix(0, ts).UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
