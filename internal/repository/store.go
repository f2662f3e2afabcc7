package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"deepgpt/internal/config"
	"deepgpt/internal/db"
)

// Store agrupa los repositorios de sesiones y mensajes sobre un mismo backend.
type Store struct {
	Sessions SessionRepository
	Messages MessageRepository
	Backend  string
	close    func()
}

// Close libera la conexión subyacente.
func (s *Store) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// OpenStore elige Postgres cuando DATABASE_URL está definido y SQLite en caso contrario.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := db.InitPgSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		logger.Info("store ready", zap.String("backend", "postgres"))
		return &Store{
			Sessions: NewPgSessionRepository(pool),
			Messages: NewPgMessageRepository(pool),
			Backend:  "postgres",
			close:    pool.Close,
		}, nil
	}

	sqlDB, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.InitSQLiteSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	logger.Info("store ready", zap.String("backend", "sqlite"), zap.String("path", cfg.DBPath))
	return &Store{
		Sessions: NewSqliteSessionRepository(sqlDB),
		Messages: NewSqliteMessageRepository(sqlDB),
		Backend:  "sqlite",
		close:    func() { _ = sqlDB.Close() },
	}, nil
}
