package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuestionsScanner/internal/config"
	"QuestionsScanner/internal/domain"
)

var judgeRequest = domain.CompletionRequest{System: "sys", User: "Вопрос: как?", MaxTokens: 3}

func TestOpenAIBackendComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		assert.Equal(t, 3, body.MaxTokens)
		assert.Less(t, body.Temperature, float32(0.001))
		assert.Len(t, body.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, body.Messages[0].Role)
		assert.Equal(t, "Вопрос: как?", body.Messages[1].Content)

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: "assistant", Content: " Да \n"},
			}},
		})
	}))
	defer server.Close()

	backend, err := NewOpenAIBackend(config.ClassifierConfig{APIKey: "test-key", Model: "test-model", Endpoint: server.URL})
	require.NoError(t, err)

	reply, err := backend.Complete(context.Background(), judgeRequest)
	require.NoError(t, err)
	assert.Equal(t, "Да", reply)
}

func TestOpenAIBackendNoChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
	}))
	defer server.Close()

	backend, err := NewOpenAIBackend(config.ClassifierConfig{APIKey: "k", Model: "m", Endpoint: server.URL})
	require.NoError(t, err)

	_, err = backend.Complete(context.Background(), judgeRequest)
	assert.ErrorContains(t, err, "no choices")
}

func TestOpenAIBackendHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
	}))
	defer server.Close()

	backend, err := NewOpenAIBackend(config.ClassifierConfig{APIKey: "k", Model: "m", Endpoint: server.URL})
	require.NoError(t, err)

	_, err = backend.Complete(context.Background(), judgeRequest)
	assert.Error(t, err)
}

func TestAnthropicBackendComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-test", body["model"])
		assert.EqualValues(t, 3, body["max_tokens"])
		assert.EqualValues(t, 0, body["temperature"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "да"}],
			"stop_reason": "end_turn", "stop_sequence": null,
			"usage": {"input_tokens": 10, "output_tokens": 1}
		}`))
	}))
	defer server.Close()

	backend, err := NewAnthropicBackend(
		config.ClassifierConfig{APIKey: "test-key", Model: "claude-test", Endpoint: server.URL},
		option.WithMaxRetries(0),
	)
	require.NoError(t, err)

	reply, err := backend.Complete(context.Background(), judgeRequest)
	require.NoError(t, err)
	assert.Equal(t, "да", reply)
}

func TestAnthropicBackendError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
	}))
	defer server.Close()

	backend, err := NewAnthropicBackend(
		config.ClassifierConfig{APIKey: "k", Model: "m", Endpoint: server.URL},
		option.WithMaxRetries(0),
	)
	require.NoError(t, err)

	_, err = backend.Complete(context.Background(), judgeRequest)
	assert.ErrorContains(t, err, "messages api")
}

func TestOllamaBackendComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var body ollamaChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body.Stream)
		assert.Equal(t, 3, body.Options.NumPredict)
		assert.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: "нет"}})
	}))
	defer server.Close()

	backend, err := NewOllamaBackend(config.ClassifierConfig{Model: "qwen", Endpoint: server.URL + "/"})
	require.NoError(t, err)

	reply, err := backend.Complete(context.Background(), judgeRequest)
	require.NoError(t, err)
	assert.Equal(t, "нет", reply)
}

func TestOllamaBackendStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	backend, err := NewOllamaBackend(config.ClassifierConfig{Model: "qwen", Endpoint: server.URL})
	require.NoError(t, err)

	_, err = backend.Complete(context.Background(), judgeRequest)
	assert.ErrorContains(t, err, "model not loaded")
}

func TestFactory(t *testing.T) {
	t.Parallel()

	b, err := New(config.ClassifierConfig{Provider: "OpenRouter", APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "openai", b.Name())

	b, err = New(config.ClassifierConfig{Provider: "anthropic", APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", b.Name())

	b, err = New(config.ClassifierConfig{Provider: "ollama", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", b.Name())

	_, err = New(config.ClassifierConfig{Provider: "openai", Model: "m"})
	assert.Error(t, err)

	_, err = New(config.ClassifierConfig{Provider: "bard"})
	assert.ErrorContains(t, err, "unknown classifier provider")
}
