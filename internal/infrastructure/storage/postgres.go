package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: sq.Dollar,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS sent_questions (
			id BIGSERIAL PRIMARY KEY,
			source_id TEXT NOT NULL,
			message_id BIGINT NOT NULL,
			content_hash TEXT NOT NULL,
			delivered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (source_id, message_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sent_at ON sent_questions (delivered_at)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_message ON sent_questions (source_id, message_id)`,
	},
	timeArg: func(t time.Time) any {
		return t.UTC()
	},
}

// NewPostgresStore wires an already opened sql.DB. The schema is not applied.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *SQLStore {
	return newSQLStore(db, postgresDialect, logger)
}

// OpenPostgres connects with the lib/pq driver and applies the schema.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := NewPostgresStore(db, logger)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
