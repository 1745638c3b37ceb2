package config

import (
	"errors"
	"fmt"

	"QuestionsScanner/internal/domain"
)

// Validate reports every problem at once, wrapped in ErrConfigurationInvalid.
func (c Config) Validate() error {
	return c.validate(true)
}

// ValidateOffline skips the delivery bot requirements, for dry runs.
func (c Config) ValidateOffline() error {
	return c.validate(false)
}

func (c Config) validate(requireBot bool) error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if len(c.Monitor.Sources) == 0 {
		add("monitor.sources: at least one source is required")
	}
	if c.Monitor.Interval <= 0 {
		add("monitor.interval must be positive, got %s", c.Monitor.Interval)
	}
	if c.Monitor.MessagesLimit <= 0 {
		add("monitor.messagesLimit must be positive, got %d", c.Monitor.MessagesLimit)
	}
	if c.Monitor.Concurrency < 1 {
		add("monitor.concurrency must be at least 1, got %d", c.Monitor.Concurrency)
	}
	if c.Monitor.SendDelay < 0 || c.Monitor.SourceDelay < 0 {
		add("monitor delays must not be negative")
	}

	if requireBot {
		if c.Bot.Token == "" {
			add("bot.token is required")
		}
		if c.Bot.ChatID == "" {
			add("bot.chatId is required")
		}
	}
	if c.Bot.MaxMessageLength < 4 {
		add("bot.maxMessageLength must be at least 4, got %d", c.Bot.MaxMessageLength)
	}

	switch c.Classifier.Provider {
	case "openai", "openrouter", "anthropic":
		if c.Classifier.APIKey == "" {
			add("classifier.apiKey is required for provider %q", c.Classifier.Provider)
		}
	case "ollama":
	default:
		add("classifier.provider %q is not one of openai, openrouter, anthropic, ollama", c.Classifier.Provider)
	}
	if c.Classifier.Model == "" {
		add("classifier.model is required")
	}
	if c.Classifier.TopicMaxInputs <= 0 || c.Classifier.TopicMaxChars <= 0 {
		add("classifier topic limits must be positive")
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			add("storage.path is required for sqlite")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			add("storage.dsn is required for postgres")
		}
	case "memory":
	default:
		add("storage.driver %q is not one of sqlite, postgres, memory", c.Storage.Driver)
	}
	if c.Storage.RetentionDays <= 0 {
		add("storage.retentionDays must be positive, got %d", c.Storage.RetentionDays)
	}

	switch c.Logging.Format {
	case "json", "text", "console":
	default:
		add("logging.format %q is not one of json, text", c.Logging.Format)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrConfigurationInvalid, errors.Join(problems...))
}

// Masked returns a copy safe to print.
func (c Config) Masked() Config {
	c.Bot.Token = mask(c.Bot.Token)
	c.Classifier.APIKey = mask(c.Classifier.APIKey)
	c.Storage.DSN = mask(c.Storage.DSN)
	c.Monitor.Sources = append([]string(nil), c.Monitor.Sources...)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
