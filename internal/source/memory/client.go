package memory

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

// Scheme is the locator prefix routed to this client.
const Scheme = "memory"

type chat struct {
	source    domain.Source
	messages  []domain.Message
	streamErr error
}

// Client serves chats from process memory. Messages are kept newest first.
type Client struct {
	mu          sync.Mutex
	chats       map[string]*chat
	resolveErrs map[string]error
	connected   bool
	streams     map[string]int
}

var _ ports.SourceClient = (*Client)(nil)

// New returns an empty client.
func New() *Client {
	return &Client{
		chats:       map[string]*chat{},
		resolveErrs: map[string]error{},
		streams:     map[string]int{},
	}
}

// Key normalizes a locator: "memory:@Chat" and "chat" are the same chat.
func Key(locator string) string {
	key := strings.TrimSpace(locator)
	if scheme, rest, ok := strings.Cut(key, ":"); ok && strings.EqualFold(scheme, Scheme) {
		key = rest
	}
	return strings.ToLower(strings.TrimPrefix(key, "@"))
}

// AddChat registers a chat and its messages, newest first. Empty SourceID
// fields are filled in.
func (c *Client) AddChat(locator, title string, messages ...domain.Message) domain.Source {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(locator)
	src := domain.Source{ID: key, DisplayName: title, Locator: locator, IsPublic: true}
	stored := make([]domain.Message, len(messages))
	for i, m := range messages {
		if m.SourceID == "" {
			m.SourceID = key
		}
		stored[i] = m
	}
	c.chats[key] = &chat{source: src, messages: stored}
	return src
}

// SetMessages replaces the messages of an existing chat.
func (c *Client) SetMessages(locator string, messages ...domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.chats[Key(locator)]; ok {
		ch.messages = append([]domain.Message(nil), messages...)
		for i := range ch.messages {
			if ch.messages[i].SourceID == "" {
				ch.messages[i].SourceID = ch.source.ID
			}
		}
	}
}

// FailResolve makes ResolveSource return err for the locator.
func (c *Client) FailResolve(locator string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolveErrs[Key(locator)] = err
}

// FailStream makes the next streams of the chat yield err.
func (c *Client) FailStream(locator string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.chats[Key(locator)]; ok {
		ch.streamErr = err
	}
}

// Streams reports how many times the chat was streamed.
func (c *Client) Streams(locator string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams[Key(locator)]
}

// Connected reports whether Connect was called without a later Disconnect.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *Client) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *Client) ResolveSource(ctx context.Context, locator string) (domain.Source, error) {
	if err := ctx.Err(); err != nil {
		return domain.Source{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key(locator)
	if err := c.resolveErrs[key]; err != nil {
		return domain.Source{}, fmt.Errorf("resolve %s: %w", locator, err)
	}
	ch, ok := c.chats[key]
	if !ok {
		return domain.Source{}, fmt.Errorf("resolve %s: %w", locator, domain.ErrNotFound)
	}
	src := ch.source
	src.Locator = locator
	return src, nil
}

// StreamMessages yields a snapshot taken when iteration starts.
func (c *Client) StreamMessages(ctx context.Context, src domain.Source, limit int) iter.Seq2[domain.Message, error] {
	return func(yield func(domain.Message, error) bool) {
		c.mu.Lock()
		key := src.ID
		ch, ok := c.chats[key]
		c.streams[key]++
		var (
			messages  []domain.Message
			streamErr error
		)
		if ok {
			messages = append(messages, ch.messages...)
			streamErr = ch.streamErr
		}
		c.mu.Unlock()

		if !ok {
			yield(domain.Message{}, fmt.Errorf("stream %s: %w", src.ID, domain.ErrNotFound))
			return
		}
		if streamErr != nil {
			yield(domain.Message{}, fmt.Errorf("stream %s: %w", src.ID, streamErr))
			return
		}

		emitted := 0
		for _, m := range messages {
			if emitted >= limit {
				return
			}
			if err := ctx.Err(); err != nil {
				yield(domain.Message{}, err)
				return
			}
			if strings.TrimSpace(m.Text) == "" {
				continue
			}
			if !yield(m, nil) {
				return
			}
			emitted++
		}
	}
}
