package memory

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"QuestionsScanner/internal/domain"
)

// Fixture is the YAML layout accepted by LoadFixture.
type Fixture struct {
	Chats []FixtureChat `yaml:"chats"`
}

// FixtureChat lists messages newest first.
type FixtureChat struct {
	Locator  string           `yaml:"locator"`
	Title    string           `yaml:"title"`
	Messages []FixtureMessage `yaml:"messages"`
}

// FixtureMessage is a single message; pinned ones are dropped on load.
type FixtureMessage struct {
	ID     int64     `yaml:"id"`
	Sender string    `yaml:"sender"`
	Text   string    `yaml:"text"`
	Date   time.Time `yaml:"date"`
	Pinned bool      `yaml:"pinned"`
}

// LoadFixture reads a YAML file into a new client.
func LoadFixture(path string) (*Client, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}

// ParseFixture decodes fixture YAML into a new client.
func ParseFixture(raw []byte) (*Client, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	client := New()
	for _, ch := range fx.Chats {
		if ch.Locator == "" {
			return nil, fmt.Errorf("fixture chat without locator")
		}
		key := Key(ch.Locator)
		title := ch.Title
		if title == "" {
			title = key
		}

		messages := make([]domain.Message, 0, len(ch.Messages))
		for _, m := range ch.Messages {
			if m.Pinned {
				continue
			}
			messages = append(messages, domain.Message{
				SourceID:   key,
				MessageID:  m.ID,
				SenderID:   m.Sender,
				SenderName: m.Sender,
				Text:       m.Text,
				Timestamp:  m.Date,
			})
		}
		client.AddChat(ch.Locator, title, messages...)
	}
	return client, nil
}
