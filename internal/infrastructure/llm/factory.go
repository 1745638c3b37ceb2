package llm

import (
	"fmt"
	"strings"

	"QuestionsScanner/internal/config"
	"QuestionsScanner/internal/ports"
)

// New picks the backend named by cfg.Provider.
func New(cfg config.ClassifierConfig) (ports.ChatBackend, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai", "openrouter":
		return NewOpenAIBackend(cfg)
	case "anthropic":
		return NewAnthropicBackend(cfg)
	case "ollama":
		return NewOllamaBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}
