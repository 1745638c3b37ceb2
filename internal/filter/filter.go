// Package filter decides with deterministic heuristics whether a chat message
// is a real question worth classifying.
package filter

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"QuestionsScanner/internal/domain"
	"QuestionsScanner/internal/ports"
)

const (
	MinLength   = 20
	MaxLength   = 700
	MaxNewlines = 3

	rhetoricalShortLength = 40
	maxSpamEmoji          = 3
)

// Stage is one rule of the chain. Reject receives the trimmed text and its
// lower-cased form and reports whether the message must be dropped.
type Stage struct {
	Name   string
	Reject func(text, lower string) bool
}

// Options tunes the default chain.
type Options struct {
	// ExtraBoringPhrases are appended to the built-in boring pattern list.
	ExtraBoringPhrases []string
	// RejectAdvertising inserts the IsAdvertising check right after the link rule.
	RejectAdvertising bool
}

// Filter evaluates an ordered list of stages until the first rejection.
type Filter struct {
	stages []Stage
	logger *slog.Logger
}

var _ ports.QuestionFilter = (*Filter)(nil)

var defaultFilter = New(Options{}, nil)

// New builds the default chain.
func New(opts Options, logger *slog.Logger) *Filter {
	boring := compileBoring(opts.ExtraBoringPhrases)

	stages := []Stage{
		{Name: "empty", Reject: func(text, _ string) bool { return text == "" }},
		{Name: "length", Reject: func(text, _ string) bool { return !HasValidLength(text) }},
		{Name: "links", Reject: func(_, lower string) bool { return HasLinks(lower) }},
	}
	if opts.RejectAdvertising {
		stages = append(stages, Stage{Name: "advertising", Reject: func(text, _ string) bool { return IsAdvertising(text) }})
	}
	stages = append(stages,
		Stage{Name: "newlines", Reject: func(text, _ string) bool { return strings.Count(text, "\n") > MaxNewlines }},
		Stage{Name: "useless", Reject: func(_, lower string) bool { return IsUseless(lower) }},
		Stage{Name: "self_reference", Reject: func(_, lower string) bool { return selfReferencePattern.MatchString(lower) }},
		Stage{Name: "rhetorical", Reject: func(text, _ string) bool { return IsRhetorical(text) }},
		Stage{Name: "boring", Reject: func(_, lower string) bool {
			_, ok := matchAny(boring, lower)
			return ok
		}},
		Stage{Name: "no_question_pattern", Reject: func(_, lower string) bool { return !HasQuestionPattern(lower) }},
		Stage{Name: "exclusion", Reject: func(_, lower string) bool { return IsExcluded(lower) }},
		Stage{Name: "self_narrative", Reject: func(_, lower string) bool { return selfNarrativePattern.MatchString(lower) }},
	)

	return &Filter{stages: stages, logger: logger}
}

// IsRealQuestion runs the default chain.
func IsRealQuestion(text string) bool {
	return defaultFilter.IsRealQuestion(text)
}

// IsRealQuestion reports whether text passes every stage.
func (f *Filter) IsRealQuestion(text string) bool {
	ok, _ := f.Evaluate(text)
	return ok
}

// Evaluate returns the verdict and the name of the rejecting stage, if any.
func (f *Filter) Evaluate(text string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	for _, stage := range f.stages {
		if stage.Reject(trimmed, lower) {
			f.debug("message rejected", "stage", stage.Name, "preview", domain.Preview(trimmed, 50))
			return false, stage.Name
		}
	}
	return true, ""
}

// Stages lists stage names in evaluation order.
func (f *Filter) Stages() []string {
	names := make([]string, len(f.stages))
	for i, s := range f.stages {
		names[i] = s.Name
	}
	return names
}

// FilterCandidates keeps messages that are real questions, preserving order.
func (f *Filter) FilterCandidates(messages []domain.Message) []domain.Message {
	candidates := make([]domain.Message, 0)
	for _, msg := range messages {
		if f.IsRealQuestion(msg.Text) {
			candidates = append(candidates, msg)
		}
	}

	rate := "0%"
	if len(messages) > 0 {
		rate = fmt.Sprintf("%.1f%%", float64(len(candidates))/float64(len(messages))*100)
	}
	if f.logger != nil {
		f.logger.Info("messages filtered", "total", len(messages), "candidates", len(candidates), "filter_rate", rate)
	}
	return candidates
}

// HasValidLength checks the rune length bounds.
func HasValidLength(text string) bool {
	n := utf8.RuneCountInString(text)
	return n >= MinLength && n <= MaxLength
}

// HasLinks detects URLs, www hosts, short links and bare domains.
func HasLinks(text string) bool {
	_, ok := matchAny(linkPatterns, strings.ToLower(text))
	return ok
}

// IsUseless matches meta-questions about the conversation itself.
func IsUseless(text string) bool {
	_, ok := matchAny(uselessPatterns, strings.ToLower(text))
	return ok
}

// IsRhetorical matches rhetorical phrases, or short questions without any
// interrogative word.
func IsRhetorical(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if _, ok := matchAny(rhetoricalPatterns, lower); ok {
		return true
	}
	return utf8.RuneCountInString(lower) < rhetoricalShortLength &&
		strings.Contains(lower, "?") &&
		!interrogativePattern.MatchString(lower)
}

// IsBoring matches greetings, motivation and small talk from the built-in list.
func IsBoring(text string) bool {
	_, ok := matchAny(builtinBoring, strings.ToLower(text))
	return ok
}

// HasQuestionPattern requires an interrogative clause, a request for advice or a bare "word?".
func HasQuestionPattern(text string) bool {
	_, ok := matchAny(questionPatterns, strings.ToLower(text))
	return ok
}

// IsExcluded matches jokes, laughing emoji, non-Cyrillic content and short acknowledgements.
func IsExcluded(text string) bool {
	_, ok := matchAny(exclusionPatterns, strings.ToLower(text))
	return ok
}

// IsAdvertising flags solicitation and messages with more than three promo emoji.
func IsAdvertising(text string) bool {
	if _, ok := matchAny(spamPatterns, strings.ToLower(text)); ok {
		return true
	}
	return len(spamEmojiPattern.FindAllString(text, -1)) > maxSpamEmoji
}

var builtinBoring = compileAll(defaultBoringPhrases...)

// compileBoring extends the built-in list with literal phrases from config.
func compileBoring(extra []string) []*regexp.Regexp {
	patterns := append([]*regexp.Regexp{}, builtinBoring...)
	for _, phrase := range extra {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(regexp.QuoteMeta(phrase)))
	}
	return patterns
}

func (f *Filter) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
