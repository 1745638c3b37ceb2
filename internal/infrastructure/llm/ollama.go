package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"QuestionsScanner/internal/config"
	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

// DefaultOllamaURL is the local Ollama daemon.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaBackend talks to a self-hosted Ollama server over its chat endpoint.
type OllamaBackend struct {
	endpoint string
	model    string
	apiKey   string
	http     *http.Client
}

var _ ports.ChatBackend = (*OllamaBackend)(nil)

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

// NewOllamaBackend creates a reusable HTTP client. Timeouts come from the caller's context.
func NewOllamaBackend(cfg config.ClassifierConfig) (*OllamaBackend, error) {
	if cfg.Model == "" {
		return nil, errors.New("ollama backend: model is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultOllamaURL
	}

	return &OllamaBackend{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		http:     &http.Client{},
	}, nil
}

func (c *OllamaBackend) Name() string { return "ollama" }

// Complete runs a non-streaming chat request.
func (c *OllamaBackend) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	messages := make([]ollamaMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: req.User})

	payload := ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Options:  ollamaOptions{Temperature: 0, NumPredict: req.MaxTokens},
	}

	var resp ollamaChatResponse
	if err := c.post(ctx, "/api/chat", payload, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama: %s", resp.Error)
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

func (c *OllamaBackend) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
