package domain

// CompletionRequest is a single system+user prompt pair sent to a chat backend.
type CompletionRequest struct {
	System    string
	User      string
	MaxTokens int
}

// Judgment is the outcome of a yes/no classification call.
// Err is set when the backend could not be consulted.
type Judgment struct {
	Affirmative bool
	Err         error
}

// Passed applies the fail-closed policy: a failed call never passes.
func (j Judgment) Passed() bool {
	return j.Err == nil && j.Affirmative
}

// TopicResult is the outcome of a topic summarization call.
type TopicResult struct {
	Text string
	Err  error
}

// OrFallback returns the topic text or fallback when summarization failed.
func (t TopicResult) OrFallback(fallback string) string {
	if t.Err != nil || t.Text == "" {
		return fallback
	}
	return t.Text
}
