package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

const (
	// FallbackTopic is used by callers when summarization fails.
	FallbackTopic = "Общая тематика не определена"

	topicMaxTokens    = 80
	judgmentMaxTokens = 3
)

var (
	errEmptyCompletion = errors.New("empty completion")

	topicCleanup = regexp.MustCompile(`[^\p{L}\p{N}_\s,.]`)
)

// Options tunes the gateway.
type Options struct {
	// AffirmativeToken is searched in the lower-cased reply of boolean judgments.
	AffirmativeToken  string
	Timeout           time.Duration
	RequestsPerSecond float64
	// TopicMaxChars caps every message sent for summarization, in runes.
	TopicMaxChars int
}

// Gateway turns chat completions into topic and yes/no judgments.
// It never returns Go errors: failures travel inside the result values.
type Gateway struct {
	backend ports.ChatBackend
	limiter *rate.Limiter
	opts    Options
	logger  *slog.Logger
}

var _ ports.Classifier = (*Gateway)(nil)

// New wraps a backend with rate limiting and per-call timeouts.
func New(backend ports.ChatBackend, opts Options, logger *slog.Logger) *Gateway {
	if opts.AffirmativeToken == "" {
		opts.AffirmativeToken = "да"
	}
	opts.AffirmativeToken = strings.ToLower(opts.AffirmativeToken)
	if opts.TopicMaxChars <= 0 {
		opts.TopicMaxChars = 250
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Gateway{
		backend: backend,
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
		logger:  logger,
	}
}

// SummarizeTopic describes the chat subject from at most maxInputs messages.
func (g *Gateway) SummarizeTopic(ctx context.Context, texts []string, maxInputs int) domain.TopicResult {
	if maxInputs > 0 && len(texts) > maxInputs {
		texts = texts[:maxInputs]
	}

	lines := make([]string, 0, len(texts))
	for _, text := range texts {
		if text == "" {
			continue
		}
		lines = append(lines, truncateRunes(text, g.opts.TopicMaxChars))
	}

	reply, err := g.complete(ctx, domain.CompletionRequest{
		System:    topicSystemPrompt,
		User:      topicPrompt(strings.Join(lines, "\n")),
		MaxTokens: topicMaxTokens,
	})
	if err != nil {
		g.logger.Error("topic summarization failed", "inputs", len(lines), "error", err)
		return domain.TopicResult{Err: err}
	}

	topic := strings.TrimSpace(topicCleanup.ReplaceAllString(reply, ""))
	if topic == "" {
		g.logger.Warn("topic summarization returned nothing usable")
		return domain.TopicResult{Err: errEmptyCompletion}
	}

	g.logger.Info("chat topic determined", "topic", topic, "inputs", len(lines))
	return domain.TopicResult{Text: topic}
}

// IsOnTopic asks whether the question belongs to the chat topic.
func (g *Gateway) IsOnTopic(ctx context.Context, question, topic string) domain.Judgment {
	return g.judge(ctx, "on_topic", onTopicSystemPrompt,
		onTopicPrompt(strings.TrimSpace(question), strings.TrimSpace(topic)), question)
}

// IsConfidentlyAnswerable asks whether a knowledgeable responder could answer well.
func (g *Gateway) IsConfidentlyAnswerable(ctx context.Context, question string) domain.Judgment {
	return g.judge(ctx, "confident", confidenceSystemPrompt,
		confidencePrompt(strings.TrimSpace(question)), question)
}

// IsActionableRequest asks whether the question is a concrete solvable task.
func (g *Gateway) IsActionableRequest(ctx context.Context, question string) domain.Judgment {
	return g.judge(ctx, "actionable", actionableSystemPrompt,
		actionablePrompt(strings.TrimSpace(question)), question)
}

func (g *Gateway) judge(ctx context.Context, kind, system, user, question string) domain.Judgment {
	reply, err := g.complete(ctx, domain.CompletionRequest{
		System:    system,
		User:      user,
		MaxTokens: judgmentMaxTokens,
	})
	if err != nil {
		g.logger.Error("judgment failed", "judgment", kind, "question", domain.Preview(question, 50), "error", err)
		return domain.Judgment{Err: err}
	}

	affirmative := strings.Contains(strings.ToLower(reply), g.opts.AffirmativeToken)
	g.logger.Debug("judgment received", "judgment", kind, "affirmative", affirmative, "question", domain.Preview(question, 50))
	return domain.Judgment{Affirmative: affirmative}
}

func (g *Gateway) complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	reply, err := g.backend.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", g.backend.Name(), err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errEmptyCompletion
	}
	return reply, nil
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
