package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

const (
	defaultSendDelay     = 500 * time.Millisecond
	defaultCommitTimeout = 5 * time.Second
	defaultTopicInputs   = 100
)

// PipelineOptions tunes a single source pass.
type PipelineOptions struct {
	MessagesLimit  int
	TopicMaxInputs int
	SendDelay      time.Duration
	// CommitTimeout bounds the dedup write after a send, even during shutdown.
	CommitTimeout time.Duration
	FallbackTopic string
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.SourceClient
	Filter     ports.QuestionFilter
	Classifier ports.Classifier
	Notifier   ports.Notifier
	Store      ports.DeliveryStore
	Logger     *slog.Logger
	Options    PipelineOptions
	// Sleep waits between sends; nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Pipeline implements the per-source question workflow:
// resolve, fetch, filter, summarize, gate, deliver, commit.
type Pipeline struct {
	source     ports.SourceClient
	filter     ports.QuestionFilter
	classifier ports.Classifier
	notifier   ports.Notifier
	store      ports.DeliveryStore
	logger     *slog.Logger
	opts       PipelineOptions
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	opts := deps.Options
	if opts.MessagesLimit <= 0 {
		opts.MessagesLimit = 100
	}
	if opts.TopicMaxInputs <= 0 {
		opts.TopicMaxInputs = defaultTopicInputs
	}
	if opts.SendDelay < 0 {
		opts.SendDelay = defaultSendDelay
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = defaultCommitTimeout
	}

	p := &Pipeline{
		source:     deps.Source,
		filter:     deps.Filter,
		classifier: deps.Classifier,
		notifier:   deps.Notifier,
		store:      deps.Store,
		logger:     deps.Logger,
		opts:       opts,
		sleep:      deps.Sleep,
		now:        deps.Now,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// ProcessSource runs one pass over a source and returns how many questions were
// delivered and committed. Resolution and fetch failures come back as
// NotFound, AccessDenied or Connectivity errors; classifier and delivery
// failures never do.
func (p *Pipeline) ProcessSource(ctx context.Context, locator string) (int, error) {
	logger := loggerFrom(ctx, p.logger).With("locator", locator)

	src, err := p.source.ResolveSource(ctx, locator)
	if err != nil {
		return 0, domain.NormalizeSourceError(err)
	}
	logger = logger.With("source", src.ID)

	messages, err := p.fetch(ctx, src)
	if err != nil {
		return 0, domain.NormalizeSourceError(err)
	}
	logger.Info("messages fetched", "count", len(messages))

	candidates := p.filter.FilterCandidates(messages)
	if len(candidates) == 0 {
		logger.Info("no candidate questions")
		return 0, nil
	}

	texts := make([]string, len(messages))
	for i, m := range messages {
		texts[i] = m.Text
	}
	topic := p.classifier.SummarizeTopic(ctx, texts, p.opts.TopicMaxInputs).OrFallback(p.opts.FallbackTopic)
	logger.Info("topic ready", "topic", topic, "candidates", len(candidates))

	delivered, attempted := 0, 0
	for _, msg := range candidates {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		msgLogger := logger.With("message_id", msg.MessageID, "preview", msg.Preview(50))

		if p.store.IsAlreadyDelivered(ctx, src.ID, msg.MessageID) {
			msgLogger.Debug("already delivered")
			continue
		}

		verdict, gateErr := p.judge(ctx, msg.Text, topic)
		if !verdict.Suitable() {
			if gateErr != nil {
				msgLogger.Warn("classifier unavailable, question skipped", "error", gateErr)
			} else {
				msgLogger.Debug("question rejected", "on_topic", verdict.OnTopic, "confident", verdict.Confident, "actionable", verdict.Actionable)
			}
			continue
		}

		if attempted > 0 {
			if err := p.sleep(ctx, p.opts.SendDelay); err != nil {
				return delivered, err
			}
		}
		attempted++

		if err := p.notifier.SendFormatted(ctx, domain.Question{Message: msg, Source: src}); err != nil {
			msgLogger.Warn("delivery failed, will retry next tick", "error", err)
			continue
		}

		if p.commit(ctx, src, msg) {
			delivered++
		} else {
			msgLogger.Error("delivered but not recorded, may repeat")
		}
	}

	logger.Info("source processed", "delivered", delivered, "candidates", len(candidates))
	return delivered, nil
}

func (p *Pipeline) fetch(ctx context.Context, src domain.Source) ([]domain.Message, error) {
	var messages []domain.Message
	for msg, err := range p.source.StreamMessages(ctx, src, p.opts.MessagesLimit) {
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, ctx.Err()
}

// judge applies the gates in cost order and stops at the first failure.
func (p *Pipeline) judge(ctx context.Context, text, topic string) (domain.Verdict, error) {
	var v domain.Verdict

	j := p.classifier.IsOnTopic(ctx, text, topic)
	if v.OnTopic = j.Passed(); !v.OnTopic {
		return v, j.Err
	}
	j = p.classifier.IsConfidentlyAnswerable(ctx, text)
	if v.Confident = j.Passed(); !v.Confident {
		return v, j.Err
	}
	j = p.classifier.IsActionableRequest(ctx, text)
	v.Actionable = j.Passed()
	return v, j.Err
}

// commit records the delivery on a context that survives shutdown so a sent
// message is not left unrecorded.
func (p *Pipeline) commit(ctx context.Context, src domain.Source, msg domain.Message) bool {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.CommitTimeout)
	defer cancel()

	return p.store.MarkDelivered(commitCtx, domain.DeliveryRecord{
		SourceID:    src.ID,
		MessageID:   msg.MessageID,
		ContentHash: domain.ContentHash(msg.Text),
		DeliveredAt: p.now(),
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type loggerKey struct{}

// WithLogger attaches a request-scoped logger, e.g. one carrying a run id.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return fallback
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
