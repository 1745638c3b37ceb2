package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuestionsScanner/internal/config"
	"QuestionsScanner/internal/domain"
)

const fixtureYAML = `chats:
  - locator: memory:devchat
    title: Dev Chat
    messages:
      - id: 12
        sender: Ann
        date: 2024-05-10T12:00:00Z
        text: Подскажите, как правильно настроить репликацию PostgreSQL между двумя серверами?
      - id: 11
        sender: Bob
        text: Привет! Как дела у всех?
      - id: 10
        sender: Eve
        pinned: true
        text: Как автоматизировать выгрузку товаров с Wildberries на Python через API без ручного ввода данных?
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chats.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))
	return path
}

func newOllamaServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": reply},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dryRunConfig(endpoint string) config.Config {
	cfg := config.Default()
	cfg.Monitor.Sources = []string{"memory:devchat"}
	cfg.Monitor.SendDelay = 0
	cfg.Monitor.SourceDelay = 0
	cfg.Classifier.Provider = "ollama"
	cfg.Classifier.Endpoint = endpoint
	cfg.Classifier.Model = "llama3"
	cfg.Classifier.RequestsPerSecond = 0
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestOnceDryRunPrintsAndRemembersQuestions(t *testing.T) {
	t.Parallel()

	srv := newOllamaServer(t, "Да")
	var out bytes.Buffer
	application, err := New(context.Background(), dryRunConfig(srv.URL), Options{
		DryRun:  true,
		Fixture: writeFixture(t),
		Out:     &out,
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	res, err := application.Once(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"memory:devchat": 1}, res.Delivered)
	assert.Empty(t, res.Failed)

	printed := out.String()
	assert.Contains(t, printed, `Новый вопрос из чата</b> "Dev Chat"`)
	assert.Contains(t, printed, "репликацию PostgreSQL")
	assert.NotContains(t, printed, "Wildberries", "pinned messages are dropped")
	assert.Equal(t, 1, strings.Count(printed, "----"))

	res, err = application.Once(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Total(), "already delivered in this process")
}

// cancelOnWrite cancels once the printed output contains marker.
type cancelOnWrite struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	marker string
	cancel context.CancelFunc
}

func (w *cancelOnWrite) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	if strings.Contains(w.buf.String(), w.marker) {
		w.cancel()
	}
	return n, err
}

func TestRunEndsWhenContextIsCancelled(t *testing.T) {
	t.Parallel()

	srv := newOllamaServer(t, "Да")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &cancelOnWrite{marker: "репликацию PostgreSQL", cancel: cancel}

	application, err := New(ctx, dryRunConfig(srv.URL), Options{DryRun: true, Fixture: writeFixture(t), Out: out}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	require.NoError(t, application.Run(ctx))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Contains(t, out.buf.String(), "репликацию PostgreSQL")
}

func TestOnceRecordsUnknownSources(t *testing.T) {
	t.Parallel()

	srv := newOllamaServer(t, "нет")
	cfg := dryRunConfig(srv.URL)
	cfg.Monitor.Sources = []string{"memory:devchat", "memory:absent"}

	var out bytes.Buffer
	application, err := New(context.Background(), cfg, Options{DryRun: true, Fixture: writeFixture(t), Out: &out}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	res, err := application.Once(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Total())
	assert.Equal(t, map[string]string{"memory:absent": "not_found"}, res.Failed)
	assert.Empty(t, out.String())
}

func TestCheckSources(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Monitor.Sources = []string{"memory:devchat", "memory:absent"}

	res, err := CheckSources(context.Background(), cfg, Options{Fixture: writeFixture(t)}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"memory:devchat"}, res.Locators())
	assert.Equal(t, "Dev Chat", res.Valid[0].DisplayName)
	assert.ErrorIs(t, res.Failed["memory:absent"], domain.ErrNotFound)
}

func TestNewRejectsMissingFixture(t *testing.T) {
	t.Parallel()

	_, err := NewSources(config.Default(), Options{Fixture: filepath.Join(t.TempDir(), "missing.yaml")}, discardLogger())
	require.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := OpenStore(ctx, config.StorageConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "db", "q.db")}, discardLogger())
	require.NoError(t, err)
	assert.True(t, store.MarkDelivered(ctx, domain.DeliveryRecord{SourceID: "devchat", MessageID: 1}))
	assert.True(t, store.IsAlreadyDelivered(ctx, "devchat", 1))
	require.NoError(t, store.Close())

	mem, err := OpenStore(ctx, config.StorageConfig{Driver: "memory"}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStats{}, mem.Stats(ctx))

	_, err = OpenStore(ctx, config.StorageConfig{Driver: "mongo"}, discardLogger())
	assert.ErrorIs(t, err, domain.ErrConfigurationInvalid)
}
