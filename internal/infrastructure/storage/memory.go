package storage

import (
	"context"
	"sync"
	"time"

	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

type deliveryKey struct {
	sourceID  string
	messageID int64
}

// MemoryStore keeps delivery records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[deliveryKey]domain.DeliveryRecord
	now     func() time.Time
}

var _ ports.DeliveryStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[deliveryKey]domain.DeliveryRecord),
		now:     time.Now,
	}
}

func (m *MemoryStore) IsAlreadyDelivered(_ context.Context, sourceID string, messageID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[deliveryKey{sourceID, messageID}]
	return ok
}

func (m *MemoryStore) MarkDelivered(_ context.Context, record domain.DeliveryRecord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := deliveryKey{record.SourceID, record.MessageID}
	if _, ok := m.records[key]; ok {
		return true
	}
	if record.DeliveredAt.IsZero() {
		record.DeliveredAt = m.now()
	}
	m.records[key] = record
	return true
}

func (m *MemoryStore) CleanupOlderThan(_ context.Context, retentionDays int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().AddDate(0, 0, -retentionDays)
	var deleted int64
	for key, rec := range m.records {
		if rec.DeliveredAt.Before(cutoff) {
			delete(m.records, key)
			deleted++
		}
	}
	return deleted
}

func (m *MemoryStore) Stats(_ context.Context) domain.DeliveryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	day := now.Add(-24 * time.Hour)
	week := now.AddDate(0, 0, -7)

	stats := domain.DeliveryStats{Total: int64(len(m.records))}
	for _, rec := range m.records {
		if !rec.DeliveredAt.Before(day) {
			stats.Last24h++
		}
		if !rec.DeliveredAt.Before(week) {
			stats.Last7d++
		}
	}
	return stats
}

// Records returns a snapshot of stored records.
func (m *MemoryStore) Records() []domain.DeliveryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.DeliveryRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out
}

func (m *MemoryStore) Close() error { return nil }
