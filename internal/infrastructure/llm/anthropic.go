package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"QuestionsScanner/internal/config"
	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

// AnthropicBackend uses the Messages API.
type AnthropicBackend struct {
	client anthropic.Client
	model  string
}

var _ ports.ChatBackend = (*AnthropicBackend)(nil)

// NewAnthropicBackend builds a client from configuration. Extra options are
// appended after the configured ones.
func NewAnthropicBackend(cfg config.ClassifierConfig, opts ...option.RequestOption) (*AnthropicBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic backend: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic backend: model is required")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	return &AnthropicBackend{
		client: anthropic.NewClient(clientOpts...),
		model:  cfg.Model,
	}, nil
}

func (b *AnthropicBackend) Name() string { return "anthropic" }

// Complete concatenates the text blocks of the reply.
func (b *AnthropicBackend) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
		Temperature: anthropic.Float(0),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("messages api: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(text.String()), nil
}
