package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"

	"QuestionsScanner/internal/config"
	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

// DefaultOpenRouterURL is used when no endpoint is configured.
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

// zeroTemperature survives the omitempty tag on the request field.
const zeroTemperature = math.SmallestNonzeroFloat32

// OpenAIBackend talks to any OpenAI-compatible chat completions API.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

var _ ports.ChatBackend = (*OpenAIBackend)(nil)

// NewOpenAIBackend builds a client from configuration.
func NewOpenAIBackend(cfg config.ClassifierConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai backend: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai backend: model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = DefaultOpenRouterURL
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}, nil
}

func (b *OpenAIBackend) Name() string { return "openai" }

// Complete sends the prompt pair with deterministic sampling.
func (b *OpenAIBackend) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: zeroTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
