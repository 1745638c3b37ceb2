package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

const (
	// DefaultAPIBaseURL is the public Bot API host.
	DefaultAPIBaseURL = "https://api.telegram.org"
	// MaxMessageLength is the Bot API limit for a text message, in runes.
	MaxMessageLength = 4096

	ellipsis = "..."
)

// Options configures the bot client.
type Options struct {
	Token      string
	ChatID     string
	APIBaseURL string
	MaxLength  int
	Timeout    time.Duration
}

// Notifier sends HTML messages to an operator chat via the Bot API.
type Notifier struct {
	token     string
	chatID    string
	baseURL   string
	maxLength int
	client    *http.Client
	logger    *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

// NewNotifier registers bot token and chat identifier.
func NewNotifier(opts Options, logger *slog.Logger) *Notifier {
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = DefaultAPIBaseURL
	}
	if opts.MaxLength <= len(ellipsis) || opts.MaxLength > MaxMessageLength {
		opts.MaxLength = MaxMessageLength
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Notifier{
		token:     opts.Token,
		chatID:    opts.ChatID,
		baseURL:   strings.TrimRight(opts.APIBaseURL, "/"),
		maxLength: opts.MaxLength,
		client:    &http.Client{Timeout: opts.Timeout},
		logger:    logger,
	}
}

// SendFormatted renders the question card and sends it.
func (n *Notifier) SendFormatted(ctx context.Context, q domain.Question) error {
	if err := n.send(ctx, FormatQuestion(q)); err != nil {
		return fmt.Errorf("send question %s/%d: %w", q.Source.ID, q.Message.MessageID, err)
	}
	n.logger.Info("question sent", "source", q.Source.ID, "message_id", q.Message.MessageID, "sender", q.Message.SenderName)
	return nil
}

// SendText sends a service message as is.
func (n *Notifier) SendText(ctx context.Context, text string) error {
	if err := n.send(ctx, text); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if n.token == "" || n.chatID == "" {
		return errors.New("telegram notifier misconfigured")
	}

	if length := utf8.RuneCountInString(text); length > n.maxLength {
		n.logger.Warn("message too long, truncating", "length", length, "max_length", n.maxLength)
		text = Truncate(text, n.maxLength)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %s", redact(err.Error(), n.token))
	}
	defer resp.Body.Close()

	var body apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	if resp.StatusCode != http.StatusOK || !body.OK {
		if body.Description != "" {
			return fmt.Errorf("telegram error %s: %s", resp.Status, body.Description)
		}
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}

// Truncate cuts text to limit runes, ending with an ellipsis.
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	keep := limit - len(ellipsis)
	i := 0
	for pos := range text {
		if i == keep {
			return text[:pos] + ellipsis
		}
		i++
	}
	return text
}

// redact keeps the bot token out of error messages that embed the URL.
func redact(msg, token string) string {
	if token == "" {
		return msg
	}
	return strings.ReplaceAll(msg, token, "<token>")
}
