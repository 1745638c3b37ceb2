package ports

import (
	"context"
	"iter"

	"QuestionsScanner/internal/domain"
)

// SourceClient reads chats and their recent messages.
type SourceClient interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	// ResolveSource returns domain.ErrNotFound or domain.ErrAccessDenied (wrapped)
	// when the locator cannot be monitored.
	ResolveSource(ctx context.Context, locator string) (domain.Source, error)
	// StreamMessages yields up to limit recent text messages, newest first.
	// The sequence is consumed once; pinned and empty messages are skipped.
	StreamMessages(ctx context.Context, source domain.Source, limit int) iter.Seq2[domain.Message, error]
}

// ChatBackend sends a prompt pair to a chat-completion model.
type ChatBackend interface {
	Name() string
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// Classifier produces the semantic judgments used to gate delivery.
type Classifier interface {
	SummarizeTopic(ctx context.Context, texts []string, maxInputs int) domain.TopicResult
	IsOnTopic(ctx context.Context, question, topic string) domain.Judgment
	IsConfidentlyAnswerable(ctx context.Context, question string) domain.Judgment
	IsActionableRequest(ctx context.Context, question string) domain.Judgment
}

// QuestionFilter narrows raw messages to candidate questions.
type QuestionFilter interface {
	FilterCandidates(messages []domain.Message) []domain.Message
}

// Notifier delivers questions and service messages to the operator chat.
type Notifier interface {
	SendFormatted(ctx context.Context, question domain.Question) error
	SendText(ctx context.Context, text string) error
}

// DeliveryStore remembers which messages were already delivered.
// Storage failures degrade to conservative defaults instead of errors.
type DeliveryStore interface {
	IsAlreadyDelivered(ctx context.Context, sourceID string, messageID int64) bool
	MarkDelivered(ctx context.Context, record domain.DeliveryRecord) bool
	CleanupOlderThan(ctx context.Context, retentionDays int) int64
	Stats(ctx context.Context) domain.DeliveryStats
	Close() error
}

// Scheduler controls when the monitoring job executes.
type Scheduler interface {
	Run(ctx context.Context, job func(ctx context.Context)) error
	Stop()
}
