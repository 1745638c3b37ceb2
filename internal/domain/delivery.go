package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// DeliveryRecord is persisted after a question was successfully delivered.
// (SourceID, MessageID) is unique across the store.
type DeliveryRecord struct {
	SourceID    string
	MessageID   int64
	ContentHash string
	DeliveredAt time.Time
}

// DeliveryStats aggregates stored delivery records.
type DeliveryStats struct {
	Total   int64 `json:"total" yaml:"total"`
	Last24h int64 `json:"last_24h" yaml:"last_24h"`
	Last7d  int64 `json:"last_7d" yaml:"last_7d"`
}

// IterationResult summarizes one scheduler tick.
type IterationResult struct {
	Iteration int
	RunID     string
	StartedAt time.Time
	Delivered map[string]int
	Failed    map[string]string
}

// NewIterationResult prepares empty maps for a tick.
func NewIterationResult(iteration int, runID string, startedAt time.Time) IterationResult {
	return IterationResult{
		Iteration: iteration,
		RunID:     runID,
		StartedAt: startedAt,
		Delivered: map[string]int{},
		Failed:    map[string]string{},
	}
}

// Total sums delivered questions over all sources.
func (r IterationResult) Total() int {
	total := 0
	for _, n := range r.Delivered {
		total += n
	}
	return total
}

// Sources returns processed source locators in stable order.
func (r IterationResult) Sources() []string {
	keys := make([]string, 0, len(r.Delivered))
	for k := range r.Delivered {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ContentHash is the hex SHA-256 of the trimmed, lower-cased text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])
}
