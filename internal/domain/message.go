package domain

import "time"

// Source identifies a monitorable chat or channel resolved from a locator.
type Source struct {
	ID          string
	DisplayName string
	Locator     string
	IsPublic    bool
}

// Message is a single text message fetched from a source. It is never mutated.
type Message struct {
	SourceID   string
	MessageID  int64
	SenderID   string
	SenderName string
	Text       string
	Timestamp  time.Time
}

// Preview returns the first n runes of the text for logging.
func (m Message) Preview(n int) string {
	return Preview(m.Text, n)
}

// Question is a candidate that survived classification, ready for delivery.
type Question struct {
	Message Message
	Source  Source
}

// Verdict holds the three independent judgments gating delivery.
type Verdict struct {
	OnTopic    bool
	Confident  bool
	Actionable bool
}

// Suitable reports whether every gate passed.
func (v Verdict) Suitable() bool {
	return v.OnTopic && v.Confident && v.Actionable
}

// Preview truncates text to n runes and appends an ellipsis when cut.
func Preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
