package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuestionsScanner/internal/classifier"
	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/filter"
	"QuestionsScanner/internal/infrastructure/storage"
	"QuestionsScanner/internal/source/memory"
)

const (
	replicationQuestion = "Подскажите, как правильно настроить репликацию PostgreSQL между двумя серверами?"
	wildberriesQuestion = "Как автоматизировать выгрузку товаров с Wildberries на Python через API без ручного ввода данных?"
)

func chatMessages() []domain.Message {
	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	return []domain.Message{
		{MessageID: 105, SenderName: "Ann", Text: replicationQuestion, Timestamp: at},
		{MessageID: 104, SenderName: "Bob", Text: "Привет! Как дела у всех?", Timestamp: at},
		{MessageID: 103, SenderName: "Eve", Text: wildberriesQuestion, Timestamp: at},
		{MessageID: 102, SenderName: "Dan", Text: "ок", Timestamp: at},
		{MessageID: 101, SenderName: "Kim", Text: "Смотрите https://example.com классная штука, что думаете?", Timestamp: at},
	}
}

type pipelineFixture struct {
	source     *memory.Client
	classifier *stubClassifier
	notifier   *recordingNotifier
	store      *storage.MemoryStore
	sleeps     int
	pipeline   *Pipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		source:     memory.New(),
		classifier: newStubClassifier(),
		notifier:   &recordingNotifier{},
		store:      storage.NewMemoryStore(),
	}
	f.source.AddChat("memory:devchat", "Dev Chat", chatMessages()...)
	f.pipeline = NewPipeline(PipelineDeps{
		Source:     f.source,
		Filter:     filter.New(filter.Options{}, nil),
		Classifier: f.classifier,
		Notifier:   f.notifier,
		Store:      f.store,
		Options: PipelineOptions{
			MessagesLimit: 100,
			SendDelay:     time.Millisecond,
			FallbackTopic: classifier.FallbackTopic,
		},
		Sleep: func(ctx context.Context, _ time.Duration) error {
			f.sleeps++
			return ctx.Err()
		},
	})
	return f
}

func TestProcessSourceDeliversOnlyConfidentCandidates(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.classifier.confident = func(q string) domain.Judgment {
		return domain.Judgment{Affirmative: strings.Contains(q, "PostgreSQL")}
	}

	delivered, err := f.pipeline.ProcessSource(context.Background(), "memory:devchat")
	require.NoError(t, err)

	assert.Equal(t, 1, delivered)
	assert.Equal(t, []int64{105}, f.notifier.sentIDs())
	records := f.store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "devchat", records[0].SourceID)
	assert.Equal(t, int64(105), records[0].MessageID)
	assert.Equal(t, domain.ContentHash(replicationQuestion), records[0].ContentHash)

	assert.Equal(t, 1, f.classifier.calls["topic"])
	assert.Equal(t, 2, f.classifier.calls["on_topic"])
	assert.Equal(t, 2, f.classifier.calls["confident"])
	assert.Equal(t, 1, f.classifier.calls["actionable"], "gates short-circuit")

	// The topic sees the whole batch, not just the candidates.
	require.Len(t, f.classifier.topicTexts, 1)
	assert.Equal(t, []string{
		replicationQuestion,
		"Привет! Как дела у всех?",
		wildberriesQuestion,
		"ок",
		"Смотрите https://example.com классная штука, что думаете?",
	}, f.classifier.topicTexts[0])
}

func TestProcessSourceRetriesFailedDelivery(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.notifier.failTimes = 1
	ctx := context.Background()

	delivered, err := f.pipeline.ProcessSource(ctx, "memory:devchat")
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, []int64{103}, f.notifier.sentIDs(), "second candidate still delivered")
	assert.False(t, f.store.IsAlreadyDelivered(ctx, "devchat", 105))

	delivered, err = f.pipeline.ProcessSource(ctx, "memory:devchat")
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, []int64{103, 105}, f.notifier.sentIDs())

	delivered, err = f.pipeline.ProcessSource(ctx, "memory:devchat")
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Len(t, f.store.Records(), 2)
}

func TestProcessSourceDelaysBetweenSends(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)

	delivered, err := f.pipeline.ProcessSource(context.Background(), "memory:devchat")
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	assert.Equal(t, []int64{105, 103}, f.notifier.sentIDs(), "fetch order kept")
	assert.Equal(t, 1, f.sleeps)
}

func TestProcessSourceIsFailClosed(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.classifier.topicErr = errors.New("openrouter down")
	f.classifier.onTopic = func(string) domain.Judgment {
		return domain.Judgment{Affirmative: true, Err: errors.New("timeout")}
	}

	delivered, err := f.pipeline.ProcessSource(context.Background(), "memory:devchat")
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Empty(t, f.notifier.sentIDs())
	assert.Empty(t, f.store.Records())
	require.NotEmpty(t, f.classifier.topics)
	assert.Equal(t, classifier.FallbackTopic, f.classifier.topics[0])
	assert.Zero(t, f.classifier.calls["confident"])
}

func TestProcessSourceSkipsSummaryWithoutCandidates(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.source.SetMessages("memory:devchat", domain.Message{MessageID: 1, Text: "ок"})

	delivered, err := f.pipeline.ProcessSource(context.Background(), "memory:devchat")
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Zero(t, f.classifier.calls["topic"])
}

func TestProcessSourceSurfacesSourceErrors(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.source.FailResolve("memory:private", domain.ErrAccessDenied)

	_, err := f.pipeline.ProcessSource(context.Background(), "memory:absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.pipeline.ProcessSource(context.Background(), "memory:private")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	f.source.FailStream("memory:devchat", errors.New("connection reset"))
	_, err = f.pipeline.ProcessSource(context.Background(), "memory:devchat")
	assert.ErrorIs(t, err, domain.ErrConnectivity)
}

func TestProcessSourceStopsOnCancellation(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.classifier.onTopic = func(string) domain.Judgment {
		cancel()
		return domain.Judgment{Affirmative: true}
	}

	delivered, err := f.pipeline.ProcessSource(ctx, "memory:devchat")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, delivered, "in-flight candidate completes and is committed")
	assert.Len(t, f.store.Records(), 1)
}
