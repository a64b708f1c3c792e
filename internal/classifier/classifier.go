// Package classifier decides whether a candidate record is editorial content
// or page noise (ads, navigation, calls to action).
package classifier

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/ports"
)

// Candidate is the input the rules look at.
type Candidate struct {
	Title   string
	Summary string
	Kind    domain.SourceKind
}

// Rule rejects a candidate when Reject returns true. Rules run in order and the
// first match wins; later rules may assume earlier ones passed.
type Rule struct {
	Name   string
	Reject func(c Candidate) bool
}

// Options tunes the thresholds and phrase lists.
type Options struct {
	MinTitleLength   int
	MinSummaryLength int
	MinTitleWords    int
	UIPhrases        []string
	NoisePhrases     []string
}

// DefaultUIPhrases are navigational and call-to-action fragments.
var DefaultUIPhrases = []string{
	"read more", "keep reading", "subscribe", "sign up", "click here",
	"follow on", "view on", "view in browser", "unsubscribe", "newsletter",
	"read our last", "stay up to date", "join us",
}

// DefaultNoisePhrases are editorial fragments that mark promotional blocks.
var DefaultNoisePhrases = []string{
	"sponsor", "partner", "webinar", "rsvp", "workshop", "advertisement",
	"hiring", "careers", "terms", "archives", "feedback", "survey",
	"job board", "referral", "free credits", "bootcamp", "roundtable",
	"today's ai tool guide", "today’s ai tool guide",
}

// DefaultOptions returns the empirically tuned thresholds.
func DefaultOptions() Options {
	return Options{
		MinTitleLength:   15,
		MinSummaryLength: 40,
		MinTitleWords:    3,
		UIPhrases:        DefaultUIPhrases,
		NoisePhrases:     DefaultNoisePhrases,
	}
}

// Classifier applies an ordered rule table.
type Classifier struct {
	rules []Rule
}

var _ ports.Classifier = (*Classifier)(nil)

// New builds a classifier with the standard rule order. Zero thresholds fall
// back to the defaults.
func New(opts Options) *Classifier {
	def := DefaultOptions()
	if opts.MinTitleLength <= 0 {
		opts.MinTitleLength = def.MinTitleLength
	}
	if opts.MinSummaryLength <= 0 {
		opts.MinSummaryLength = def.MinSummaryLength
	}
	if opts.MinTitleWords <= 0 {
		opts.MinTitleWords = def.MinTitleWords
	}
	if len(opts.UIPhrases) == 0 {
		opts.UIPhrases = def.UIPhrases
	}
	if len(opts.NoisePhrases) == 0 {
		opts.NoisePhrases = def.NoisePhrases
	}
	return &Classifier{rules: Rules(opts)}
}

// NewWithRules builds a classifier over a custom rule table.
func NewWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Rules returns the ordered rejection table for opts.
func Rules(opts Options) []Rule {
	ui := lowerAll(opts.UIPhrases)
	noise := lowerAll(opts.NoisePhrases)

	return []Rule{
		{Name: "empty-title", Reject: func(c Candidate) bool {
			return strings.TrimSpace(c.Title) == ""
		}},
		{Name: "short-title", Reject: func(c Candidate) bool {
			return !c.Kind.IsFlatFeed() && titleLength(c.Title) < opts.MinTitleLength
		}},
		{Name: "fragment-punctuation", Reject: func(c Candidate) bool {
			t := strings.TrimSpace(c.Title)
			return strings.HasSuffix(t, ",") || strings.HasSuffix(t, ":") || strings.HasSuffix(t, ";")
		}},
		{Name: "few-words", Reject: func(c Candidate) bool {
			return len(strings.Fields(c.Title)) < opts.MinTitleWords
		}},
		{Name: "lowercase-start", Reject: func(c Candidate) bool {
			r, _ := utf8.DecodeRuneInString(strings.TrimSpace(c.Title))
			return unicode.IsLower(r)
		}},
		{Name: "no-capitalized-word", Reject: func(c Candidate) bool {
			return capitalizedAfterFirst(c.Title) < 1
		}},
		{Name: "ui-phrase", Reject: func(c Candidate) bool {
			return containsAny(c.Title, ui) || containsAny(c.Summary, ui)
		}},
		{Name: "noise-phrase", Reject: func(c Candidate) bool {
			return containsAny(c.Title, noise) || containsAny(c.Summary, noise)
		}},
		{Name: "short-summary", Reject: func(c Candidate) bool {
			return !c.Kind.IsFlatFeed() && utf8.RuneCountInString(strings.TrimSpace(c.Summary)) < opts.MinSummaryLength
		}},
	}
}

// IsRealArticle reports whether the candidate survives every rule.
func (c *Classifier) IsRealArticle(title, summary string, kind domain.SourceKind) bool {
	ok, _ := c.Classify(Candidate{Title: title, Summary: summary, Kind: kind})
	return ok
}

// Classify returns true when the candidate is kept, otherwise false and the
// name of the first rule that rejected it.
func (c *Classifier) Classify(cand Candidate) (bool, string) {
	for _, rule := range c.rules {
		if rule.Reject(cand) {
			return false, rule.Name
		}
	}
	return true, ""
}

// Filter returns the stories that survive classification, in order.
// Editions are containers and pass through unchecked.
func (c *Classifier) Filter(stories []domain.Story) []domain.Story {
	out := make([]domain.Story, 0, len(stories))
	for _, s := range stories {
		if s.IsEdition() || c.IsRealArticle(s.Title, s.Summary, s.Kind) {
			out = append(out, s)
		}
	}
	return out
}

func titleLength(title string) int {
	return utf8.RuneCountInString(strings.TrimSpace(title))
}

func capitalizedAfterFirst(title string) int {
	words := strings.Fields(title)
	count := 0
	for _, w := range words[min(1, len(words)):] {
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(r) {
			count++
		}
	}
	return count
}

func containsAny(text string, phrases []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
