package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// sqliteTimeLayout keeps timestamps fixed-width so text comparison orders them.
const sqliteTimeLayout = "2006-01-02 15:04:05"

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: sq.Question,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS sent_questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id TEXT NOT NULL,
			message_id INTEGER NOT NULL,
			content_hash TEXT NOT NULL,
			delivered_at TEXT NOT NULL,
			UNIQUE (source_id, message_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sent_at ON sent_questions (delivered_at)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_message ON sent_questions (source_id, message_id)`,
	},
	timeArg: func(t time.Time) any {
		return t.UTC().Format(sqliteTimeLayout)
	},
}

// OpenSQLite opens (creating if needed) the database file and applies the schema.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	store := newSQLStore(db, sqliteDialect, logger)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
