package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

const tableName = "sent_questions"

// dialect captures the differences between supported SQL engines.
type dialect struct {
	name        string
	placeholder sq.PlaceholderFormat
	schema      []string
	timeArg     func(time.Time) any
}

// SQLStore persists delivery records in a relational table keyed by
// (source_id, message_id).
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	builder sq.StatementBuilderType
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.DeliveryStore = (*SQLStore)(nil)

func newSQLStore(db *sql.DB, d dialect, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLStore{
		db:      db,
		dialect: d,
		builder: sq.StatementBuilder.PlaceholderFormat(d.placeholder),
		logger:  logger,
		now:     time.Now,
	}
}

// Migrate creates the table and indexes when they are missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s schema: %w", s.dialect.name, err)
		}
	}
	return nil
}

// IsAlreadyDelivered reports whether the pair was recorded. Storage errors
// return false so that a message is re-delivered rather than lost.
func (s *SQLStore) IsAlreadyDelivered(ctx context.Context, sourceID string, messageID int64) bool {
	query, args, err := s.builder.
		Select("1").
		From(tableName).
		Where(sq.And{sq.Eq{"source_id": sourceID}, sq.Eq{"message_id": messageID}}).
		Limit(1).
		ToSql()
	if err != nil {
		s.logger.Error("build delivered query", "error", err)
		return false
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false
	case err != nil:
		s.logger.Error("check delivered", "source_id", sourceID, "message_id", messageID, "error", err)
		return false
	}
	return true
}

// MarkDelivered inserts the record unless the pair already exists. A duplicate
// insert is a successful no-op.
func (s *SQLStore) MarkDelivered(ctx context.Context, record domain.DeliveryRecord) bool {
	deliveredAt := record.DeliveredAt
	if deliveredAt.IsZero() {
		deliveredAt = s.now()
	}

	query, args, err := s.builder.
		Insert(tableName).
		Columns("source_id", "message_id", "content_hash", "delivered_at").
		Values(record.SourceID, record.MessageID, record.ContentHash, s.dialect.timeArg(deliveredAt)).
		Suffix("ON CONFLICT (source_id, message_id) DO NOTHING").
		ToSql()
	if err != nil {
		s.logger.Error("build insert", "error", err)
		return false
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("mark delivered", "source_id", record.SourceID, "message_id", record.MessageID, "error", err)
		return false
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.logger.Debug("delivery already recorded", "source_id", record.SourceID, "message_id", record.MessageID)
	}
	return true
}

// CleanupOlderThan deletes records delivered strictly before now - retentionDays.
func (s *SQLStore) CleanupOlderThan(ctx context.Context, retentionDays int) int64 {
	cutoff := s.now().AddDate(0, 0, -retentionDays)

	query, args, err := s.builder.
		Delete(tableName).
		Where(sq.Lt{"delivered_at": s.dialect.timeArg(cutoff)}).
		ToSql()
	if err != nil {
		s.logger.Error("build cleanup", "error", err)
		return 0
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("cleanup delivered", "retention_days", retentionDays, "error", err)
		return 0
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("cleanup rows affected", "error", err)
		return 0
	}
	s.logger.Info("old delivery records removed", "deleted", deleted, "retention_days", retentionDays)
	return deleted
}

// Stats counts records overall, in the last 24 hours and the last 7 days.
// Any failure yields zeros.
func (s *SQLStore) Stats(ctx context.Context) domain.DeliveryStats {
	now := s.now()

	total, err := s.count(ctx, nil)
	if err != nil {
		s.logger.Error("stats total", "error", err)
		return domain.DeliveryStats{}
	}
	day, err := s.count(ctx, sq.GtOrEq{"delivered_at": s.dialect.timeArg(now.Add(-24 * time.Hour))})
	if err != nil {
		s.logger.Error("stats last 24h", "error", err)
		return domain.DeliveryStats{}
	}
	week, err := s.count(ctx, sq.GtOrEq{"delivered_at": s.dialect.timeArg(now.AddDate(0, 0, -7))})
	if err != nil {
		s.logger.Error("stats last 7d", "error", err)
		return domain.DeliveryStats{}
	}

	return domain.DeliveryStats{Total: total, Last24h: day, Last7d: week}
}

func (s *SQLStore) count(ctx context.Context, where sq.Sqlizer) (int64, error) {
	b := s.builder.Select("COUNT(*)").From(tableName)
	if where != nil {
		b = b.Where(where)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count delivered: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
