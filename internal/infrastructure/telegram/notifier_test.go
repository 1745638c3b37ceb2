package telegram

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"QuestionsScanner/internal/domain"
)

func sampleQuestion() domain.Question {
	return domain.Question{
		Source: domain.Source{ID: "golang_ru", DisplayName: "Go <Community>"},
		Message: domain.Message{
			SourceID:   "golang_ru",
			MessageID:  42,
			SenderName: "Ann & Bob",
			Text:       "Как сравнить a < b для дженериков?",
			Timestamp:  time.Date(2024, 5, 10, 9, 5, 0, 0, time.UTC),
		},
	}
}

func TestFormatQuestion(t *testing.T) {
	t.Parallel()

	out := FormatQuestion(sampleQuestion())

	assert.True(t, strings.HasPrefix(out, "📝 <b>Новый вопрос из чата</b> \"Go &lt;Community&gt;\""))
	assert.Contains(t, out, "<b>Автор:</b> Ann &amp; Bob")
	assert.Contains(t, out, "<b>Дата:</b> 10.05.2024 09:05")
	assert.Contains(t, out, "Как сравнить a &lt; b для дженериков?")
	assert.Contains(t, out, "<i>Chat ID: golang_ru | Message ID: 42</i>")
}

func TestSendFormattedPostsForm(t *testing.T) {
	t.Parallel()

	var got struct {
		path, chatID, text, parseMode string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		got.path = r.URL.Path
		got.chatID = r.PostForm.Get("chat_id")
		got.text = r.PostForm.Get("text")
		got.parseMode = r.PostForm.Get("parse_mode")
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	n := NewNotifier(Options{Token: "123:abc", ChatID: "-100500", APIBaseURL: server.URL}, nil)
	require.NoError(t, n.SendFormatted(context.Background(), sampleQuestion()))

	assert.Equal(t, "/bot123:abc/sendMessage", got.path)
	assert.Equal(t, "-100500", got.chatID)
	assert.Equal(t, "HTML", got.parseMode)
	assert.Contains(t, got.text, "Message ID: 42")
}

func TestSendTextTruncatesLongMessages(t *testing.T) {
	t.Parallel()

	var text string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		text = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewNotifier(Options{Token: "t", ChatID: "1", APIBaseURL: server.URL}, nil)
	require.NoError(t, n.SendText(context.Background(), strings.Repeat("я", 5000)))

	assert.Equal(t, MaxMessageLength, utf8.RuneCountInString(text))
	assert.True(t, strings.HasSuffix(text, "..."))
}

func TestSendReportsAPIErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer server.Close()

	n := NewNotifier(Options{Token: "secret-token", ChatID: "1", APIBaseURL: server.URL}, nil)
	err := n.SendText(context.Background(), "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot was blocked")
}

func TestSendRedactsTokenOnNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	n := NewNotifier(Options{Token: "secret-token", ChatID: "1", APIBaseURL: base}, nil)
	err := n.SendText(context.Background(), "ping")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestMisconfiguredNotifier(t *testing.T) {
	t.Parallel()

	n := NewNotifier(Options{}, nil)
	assert.ErrorContains(t, n.SendText(context.Background(), "x"), "misconfigured")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 5))
	assert.Equal(t, "пр...", Truncate("привет", 5))
}

func TestWriterNotifier(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)
	require.NoError(t, n.SendFormatted(context.Background(), sampleQuestion()))
	require.NoError(t, n.SendText(context.Background(), "summary"))

	assert.Contains(t, buf.String(), "Message ID: 42")
	assert.Contains(t, buf.String(), "summary\n----\n")
}
