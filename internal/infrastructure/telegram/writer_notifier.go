package telegram

import (
	"context"
	"fmt"
	"io"
	"sync"

	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

// WriterNotifier prints rendered messages instead of sending them. Used for dry runs.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

var _ ports.Notifier = (*WriterNotifier)(nil)

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) SendFormatted(_ context.Context, q domain.Question) error {
	return n.write(FormatQuestion(q))
}

func (n *WriterNotifier) SendText(_ context.Context, text string) error {
	return n.write(text)
}

func (n *WriterNotifier) write(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintf(n.w, "%s\n----\n", text); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
