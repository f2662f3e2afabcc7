package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"deepgpt/internal/db"
	"deepgpt/internal/domain"
)

func testRepos(t *testing.T) (*SqliteSessionRepository, *SqliteMessageRepository) {
	t.Helper()
	sqlDB, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.InitSQLiteSchema(sqlDB); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return NewSqliteSessionRepository(sqlDB), NewSqliteMessageRepository(sqlDB)
}

func createSession(t *testing.T, sessions SessionRepository, id string, at time.Time) {
	t.Helper()
	err := sessions.Create(context.Background(), domain.Session{
		ID:        id,
		Title:     "t-" + id,
		CreatedAt: at,
		UpdatedAt: at,
	})
	if err != nil {
		t.Fatalf("create session %s: %v", id, err)
	}
}

func appendMessage(t *testing.T, messages MessageRepository, sessionID, role, content string) domain.Message {
	t.Helper()
	msg, err := messages.Append(context.Background(), domain.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Model:     "deepseek",
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("append message: %v", err)
	}
	return msg
}

func TestSqliteSessionCreate_Duplicate(t *testing.T) {
	sessions, _ := testRepos(t)
	now := time.Now().UTC()
	createSession(t, sessions, "s1", now)

	err := sessions.Create(context.Background(), domain.Session{ID: "s1", Title: "x", CreatedAt: now, UpdatedAt: now})
	if !errors.Is(err, ErrDuplicateSession) {
		t.Fatalf("expected ErrDuplicateSession, got %v", err)
	}
}

func TestSqliteSessionGetByID(t *testing.T) {
	sessions, _ := testRepos(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	createSession(t, sessions, "s1", now)

	got, err := sessions.GetByID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "t-s1" || !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected session: %+v", got)
	}

	if _, err := sessions.GetByID(context.Background(), "missing"); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestSqliteMessageAppend_UnknownSession(t *testing.T) {
	_, messages := testRepos(t)
	_, err := messages.Append(context.Background(), domain.Message{
		SessionID: "ghost",
		Role:      domain.RoleUser,
		Content:   "hola",
		Timestamp: time.Now(),
	})
	if !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestSqliteMessageListRecent_Window(t *testing.T) {
	sessions, messages := testRepos(t)
	createSession(t, sessions, "s1", time.Now().UTC())
	createSession(t, sessions, "s2", time.Now().UTC())

	for i := 1; i <= 15; i++ {
		appendMessage(t, messages, "s1", domain.RoleUser, fmt.Sprintf("msg%d", i))
		appendMessage(t, messages, "s2", domain.RoleUser, fmt.Sprintf("other%d", i))
	}

	recent, err := messages.ListRecent(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(recent))
	}
	if recent[0].Content != "msg6" || recent[9].Content != "msg15" {
		t.Fatalf("expected msg6..msg15, got %s..%s", recent[0].Content, recent[9].Content)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].ID <= recent[i-1].ID {
			t.Fatalf("expected strictly increasing ids, got %d after %d", recent[i].ID, recent[i-1].ID)
		}
		if recent[i].Timestamp.Before(recent[i-1].Timestamp) {
			t.Fatalf("expected chronological order at %d", i)
		}
		if recent[i].SessionID != "s1" {
			t.Fatalf("leaked message from session %s", recent[i].SessionID)
		}
	}
}

func TestSqliteMessageListRecent_FewerThanLimit(t *testing.T) {
	sessions, messages := testRepos(t)
	createSession(t, sessions, "s1", time.Now().UTC())
	appendMessage(t, messages, "s1", domain.RoleUser, "hi")
	appendMessage(t, messages, "s1", domain.RoleAssistant, "hello ✨")

	recent, err := messages.ListRecent(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "hi" || recent[1].Content != "hello ✨" {
		t.Fatalf("unexpected messages: %+v", recent)
	}

	empty, err := messages.ListRecent(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty window, got %d", len(empty))
	}
}

func TestSqliteSessionList_OrderedByUpdatedAt(t *testing.T) {
	sessions, _ := testRepos(t)
	base := time.Now().UTC()
	createSession(t, sessions, "old", base.Add(-2*time.Hour))
	createSession(t, sessions, "mid", base.Add(-1*time.Hour))
	createSession(t, sessions, "new", base)

	if err := sessions.Touch(context.Background(), "old", base.Add(time.Minute)); err != nil {
		t.Fatalf("touch: %v", err)
	}

	list, err := sessions.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []string{}
	for _, s := range list {
		got = append(got, s.ID)
	}
	want := []string{"old", "new", "mid"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSqliteSessionTouch_Unknown(t *testing.T) {
	sessions, _ := testRepos(t)
	if err := sessions.Touch(context.Background(), "ghost", time.Now()); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestSqliteSessionDelete_CascadesAndIdempotent(t *testing.T) {
	sessions, messages := testRepos(t)
	createSession(t, sessions, "s1", time.Now().UTC())
	appendMessage(t, messages, "s1", domain.RoleUser, "hola")
	appendMessage(t, messages, "s1", domain.RoleAssistant, "buenas")

	if err := sessions.Delete(context.Background(), "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := sessions.GetByID(context.Background(), "s1"); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected session gone, got %v", err)
	}
	left, err := messages.ListBySessionID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected messages deleted, got %d", len(left))
	}

	if err := sessions.Delete(context.Background(), "s1"); err != nil {
		t.Fatalf("expected idempotent delete, got %v", err)
	}
	if err := sessions.Delete(context.Background(), "never-existed"); err != nil {
		t.Fatalf("expected idempotent delete, got %v", err)
	}
}

func TestSqliteMessageDeleteBySessionID(t *testing.T) {
	sessions, messages := testRepos(t)
	createSession(t, sessions, "s1", time.Now().UTC())
	ctx := context.Background()
	for _, m := range []domain.Message{
		{SessionID: "s1", Role: domain.RoleUser, Content: "a", Model: "qwen"},
		{SessionID: "s1", Role: domain.RoleAssistant, Content: "b", Model: "qwen"},
		{SessionID: "s1", Role: domain.RoleUser, Content: "c", Model: "kimi"},
	} {
		m.Timestamp = time.Now().UTC()
		if _, err := messages.Append(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	n, err := messages.DeleteBySessionID(ctx, "s1", "qwen")
	if err != nil {
		t.Fatalf("clear qwen: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows removed, got %d", n)
	}
	left, _ := messages.ListBySessionID(ctx, "s1")
	if len(left) != 1 || left[0].Content != "c" {
		t.Fatalf("expected only kimi message left, got %+v", left)
	}

	n, err = messages.DeleteBySessionID(ctx, "s1", "")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 row removed, got n=%d err=%v", n, err)
	}
	if _, err := sessions.GetByID(ctx, "s1"); err != nil {
		t.Fatalf("clear must keep the session, got %v", err)
	}
}

func TestSqliteRepos_StorageError(t *testing.T) {
	sqlDB, err := db.OpenSQLite(filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.InitSQLiteSchema(sqlDB); err != nil {
		t.Fatal(err)
	}
	sqlDB.Close()

	sessions := NewSqliteSessionRepository(sqlDB)
	_, err = sessions.List(context.Background())
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if storageErr.Op != "list sessions" {
		t.Fatalf("unexpected op %q", storageErr.Op)
	}
}
