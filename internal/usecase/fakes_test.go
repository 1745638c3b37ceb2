package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"QuestionsScanner/internal/domain"
)

type stubClassifier struct {
	mu         sync.Mutex
	topicErr   error
	topics     []string
	topicTexts [][]string
	onTopic    func(q string) domain.Judgment
	confident  func(q string) domain.Judgment
	actionable func(q string) domain.Judgment
	calls      map[string]int
}

func newStubClassifier() *stubClassifier {
	yes := func(string) domain.Judgment { return domain.Judgment{Affirmative: true} }
	return &stubClassifier{onTopic: yes, confident: yes, actionable: yes, calls: map[string]int{}}
}

func (c *stubClassifier) count(name string) {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
}

func (c *stubClassifier) SummarizeTopic(_ context.Context, texts []string, _ int) domain.TopicResult {
	c.count("topic")
	c.mu.Lock()
	c.topicTexts = append(c.topicTexts, append([]string(nil), texts...))
	c.mu.Unlock()
	if c.topicErr != nil {
		return domain.TopicResult{Err: c.topicErr}
	}
	return domain.TopicResult{Text: "Разработка"}
}

func (c *stubClassifier) IsOnTopic(_ context.Context, q, topic string) domain.Judgment {
	c.count("on_topic")
	c.mu.Lock()
	c.topics = append(c.topics, topic)
	c.mu.Unlock()
	return c.onTopic(q)
}

func (c *stubClassifier) IsConfidentlyAnswerable(_ context.Context, q string) domain.Judgment {
	c.count("confident")
	return c.confident(q)
}

func (c *stubClassifier) IsActionableRequest(_ context.Context, q string) domain.Judgment {
	c.count("actionable")
	return c.actionable(q)
}

type recordingNotifier struct {
	mu        sync.Mutex
	failTimes int
	questions []domain.Question
	texts     []string
}

func (n *recordingNotifier) SendFormatted(_ context.Context, q domain.Question) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failTimes > 0 {
		n.failTimes--
		return errors.New("telegram error: 502 Bad Gateway")
	}
	n.questions = append(n.questions, q)
	return nil
}

func (n *recordingNotifier) SendText(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

func (n *recordingNotifier) sentIDs() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]int64, len(n.questions))
	for i, q := range n.questions {
		ids[i] = q.Message.MessageID
	}
	return ids
}

func (n *recordingNotifier) textsWithPrefix(prefix string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, t := range n.texts {
		if strings.HasPrefix(t, prefix) {
			out = append(out, t)
		}
	}
	return out
}
