package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"QuestionsScanner/internal/domain"
)

const (
	configPathEnv       = "QSCAN_CONFIG"
	monitoredChatsEnv   = "MONITORED_CHATS"
	intervalEnv         = "MONITORING_INTERVAL"
	messagesLimitEnv    = "MESSAGES_LIMIT"
	botTokenEnv         = "TELEGRAM_BOT_TOKEN"
	botChatIDEnv        = "TELEGRAM_BOT_CHAT_ID"
	openRouterKeyEnv    = "OPENROUTER_API_KEY"
	openRouterModelEnv  = "OPENROUTER_MODEL"
	classifierProvEnv   = "CLASSIFIER_PROVIDER"
	databaseDSNEnv      = "DATABASE_DSN"
	databasePathEnv     = "DB_PATH"
	logLevelEnv         = "LOG_LEVEL"
	logFormatEnv        = "LOG_FORMAT"
	logFileEnv          = "LOG_FILE"
	defaultOpenRouterID = "google/gemini-2.0-flash-exp:free"
)

// Config holds high-level settings required across the application.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Bot        BotConfig        `yaml:"bot"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Storage    StorageConfig    `yaml:"storage"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Filter     FilterConfig     `yaml:"filter"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// TelegramConfig describes how public channel previews are read.
type TelegramConfig struct {
	BaseURL           string        `yaml:"baseUrl"`
	UserAgent         string        `yaml:"userAgent"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	CacheTTL          time.Duration `yaml:"cacheTtl"`
}

// BotConfig wires all data required to send messages.
type BotConfig struct {
	Token            string `yaml:"token"`
	ChatID           string `yaml:"chatId"`
	APIBaseURL       string `yaml:"apiBaseUrl"`
	MaxMessageLength int    `yaml:"maxMessageLength"`
}

// ClassifierConfig defines how to contact the chat completion backend.
type ClassifierConfig struct {
	Provider          string        `yaml:"provider"`
	Endpoint          string        `yaml:"endpoint"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	TopicMaxInputs    int           `yaml:"topicMaxInputs"`
	TopicMaxChars     int           `yaml:"topicMaxChars"`
	AffirmativeToken  string        `yaml:"affirmativeToken"`
}

// StorageConfig selects the dedup store backend.
type StorageConfig struct {
	Driver        string `yaml:"driver"`
	Path          string `yaml:"path"`
	DSN           string `yaml:"dsn"`
	RetentionDays int    `yaml:"retentionDays"`
}

// MonitorConfig controls the polling loop.
type MonitorConfig struct {
	Sources           []string      `yaml:"sources"`
	Interval          time.Duration `yaml:"interval"`
	MessagesLimit     int           `yaml:"messagesLimit"`
	SendDelay         time.Duration `yaml:"sendDelay"`
	SourceDelay       time.Duration `yaml:"sourceDelay"`
	Concurrency       int           `yaml:"concurrency"`
	RejectAdvertising bool          `yaml:"rejectAdvertising"`
	MuteSummaries     bool          `yaml:"muteSummaries"`
}

// FilterConfig extends the built-in heuristics.
type FilterConfig struct {
	ExtraBoringPhrases []string `yaml:"extraBoringPhrases"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An empty path falls back to QSCAN_CONFIG; no file at all means defaults.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %w", domain.ErrConfigurationInvalid, path, err)
		}
		// Keys present in the file replace defaults, explicit zero values included.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %w", domain.ErrConfigurationInvalid, path, err)
		}
		cfg.normalize()
	}

	if err := cfg.applyEnvOverrides(os.Getenv); err != nil {
		return Config{}, fmt.Errorf("%w: %w", domain.ErrConfigurationInvalid, err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides(getenv func(string) string) error {
	var problems []error

	if v := strings.TrimSpace(getenv(monitoredChatsEnv)); v != "" {
		c.Monitor.Sources = ParseSourceList(v)
	}
	if v := strings.TrimSpace(getenv(intervalEnv)); v != "" {
		d, err := parseSecondsOrDuration(v)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", intervalEnv, err))
		} else {
			c.Monitor.Interval = d
		}
	}
	if v := strings.TrimSpace(getenv(messagesLimitEnv)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s must be an integer, got %q", messagesLimitEnv, v))
		} else {
			c.Monitor.MessagesLimit = n
		}
	}

	if v := strings.TrimSpace(getenv(botTokenEnv)); v != "" {
		c.Bot.Token = v
	}
	if v := strings.TrimSpace(getenv(botChatIDEnv)); v != "" {
		c.Bot.ChatID = v
	}

	if v := strings.TrimSpace(getenv(classifierProvEnv)); v != "" {
		c.Classifier.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv(openRouterKeyEnv)); v != "" {
		c.Classifier.APIKey = v
	}
	if v := strings.TrimSpace(getenv(openRouterModelEnv)); v != "" {
		c.Classifier.Model = v
	}

	if v := strings.TrimSpace(getenv(databaseDSNEnv)); v != "" {
		c.Storage.Driver = "postgres"
		c.Storage.DSN = v
	}
	if v := strings.TrimSpace(getenv(databasePathEnv)); v != "" {
		c.Storage.Path = v
	}

	if v := strings.TrimSpace(getenv(logLevelEnv)); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv(logFormatEnv)); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv(logFileEnv)); v != "" {
		c.Logging.File = v
	}

	return errors.Join(problems...)
}

// ParseSourceList splits a comma-separated list, dropping blanks.
func ParseSourceList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseSecondsOrDuration accepts "3600" as seconds or a Go duration like "1h".
func parseSecondsOrDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("expected seconds or duration, got %q", v)
	}
	return d, nil
}

func (c *Config) normalize() {
	c.Classifier.Provider = strings.ToLower(c.Classifier.Provider)
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
}

func defaultConfig() Config {
	return Config{
		Telegram: TelegramConfig{
			BaseURL:           "https://t.me",
			UserAgent:         "QuestionsScanner/1.0 (+https://t.me)",
			RequestTimeout:    15 * time.Second,
			RequestsPerSecond: 1,
			CacheTTL:          10 * time.Minute,
		},
		Bot: BotConfig{
			APIBaseURL:       "https://api.telegram.org",
			MaxMessageLength: 4096,
		},
		Classifier: ClassifierConfig{
			Provider:          "openrouter",
			Model:             defaultOpenRouterID,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 2,
			TopicMaxInputs:    100,
			TopicMaxChars:     250,
			AffirmativeToken:  "да",
		},
		Storage: StorageConfig{
			Driver:        "sqlite",
			Path:          "data/questions.db",
			RetentionDays: 30,
		},
		Monitor: MonitorConfig{
			Interval:      time.Hour,
			MessagesLimit: 100,
			SendDelay:     500 * time.Millisecond,
			SourceDelay:   time.Second,
			Concurrency:   1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in configuration without file or environment input.
func Default() Config {
	return defaultConfig()
}
