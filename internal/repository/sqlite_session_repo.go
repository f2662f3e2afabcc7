package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"deepgpt/internal/domain"
)

// SqliteSessionRepository implementa SessionRepository sobre un archivo SQLite.
// Los timestamps se guardan como nanosegundos Unix en UTC.
type SqliteSessionRepository struct {
	db *sql.DB
}

func NewSqliteSessionRepository(db *sql.DB) *SqliteSessionRepository {
	return &SqliteSessionRepository{db: db}
}

func (r *SqliteSessionRepository) Create(ctx context.Context, session domain.Session) error {
	const query = `
		INSERT INTO sessions (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Title,
		session.CreatedAt.UnixNano(),
		session.UpdatedAt.UnixNano(),
	)
	if isSqliteConstraint(err, sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique) {
		return ErrDuplicateSession
	}
	return storageErr("create session", err)
}

func (r *SqliteSessionRepository) GetByID(ctx context.Context, id string) (domain.Session, error) {
	const query = `
		SELECT id, title, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`
	session, err := scanSqliteSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, ErrUnknownSession
	}
	if err != nil {
		return domain.Session{}, storageErr("get session", err)
	}
	return session, nil
}

func (r *SqliteSessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, at.UnixNano(), id)
	if err != nil {
		return storageErr("touch session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("touch session", err)
	}
	if n == 0 {
		return ErrUnknownSession
	}
	return nil
}

func (r *SqliteSessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	const query = `
		SELECT id, title, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC, created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("list sessions", err)
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		s, err := scanSqliteSession(rows)
		if err != nil {
			return nil, storageErr("list sessions", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list sessions", err)
	}
	return sessions, nil
}

// Delete elimina la sesión y sus mensajes. Borrar una sesión inexistente no es error.
func (r *SqliteSessionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("delete session", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return storageErr("delete session", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return storageErr("delete session", err)
	}
	return storageErr("delete session", tx.Commit())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSqliteSession(row rowScanner) (domain.Session, error) {
	var (
		s                    domain.Session
		createdAt, updatedAt int64
	)
	if err := row.Scan(&s.ID, &s.Title, &createdAt, &updatedAt); err != nil {
		return domain.Session{}, err
	}
	s.CreatedAt = time.Unix(0, createdAt).UTC()
	s.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return s, nil
}

func isSqliteConstraint(err error, codes ...sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	for _, code := range codes {
		if sqliteErr.ExtendedCode == code {
			return true
		}
	}
	return false
}
