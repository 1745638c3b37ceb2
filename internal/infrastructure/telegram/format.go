package telegram

import (
	"fmt"
	"html"
	"strings"

	"QuestionsScanner/internal/domain"
)

const dateLayout = "02.01.2006 15:04"

// FormatQuestion renders the delivery card in Bot API HTML.
func FormatQuestion(q domain.Question) string {
	title := q.Source.DisplayName
	if title == "" {
		title = q.Source.ID
	}
	sender := q.Message.SenderName
	if sender == "" {
		sender = "Неизвестно"
	}

	date := "-"
	if !q.Message.Timestamp.IsZero() {
		date = q.Message.Timestamp.Format(dateLayout)
	}

	lines := []string{
		fmt.Sprintf("📝 <b>Новый вопрос из чата</b> \"%s\"", html.EscapeString(title)),
		"",
		"<b>Автор:</b> " + html.EscapeString(sender),
		"<b>Дата:</b> " + date,
		"",
		"<b>Вопрос:</b>",
		html.EscapeString(q.Message.Text),
		"",
		fmt.Sprintf("<i>Chat ID: %s | Message ID: %d</i>", html.EscapeString(q.Source.ID), q.Message.MessageID),
	}
	return strings.Join(lines, "\n")
}
