package parser

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"StoryScanner/internal/infrastructure/httpfetch"
)

// Fetcher is the subset of httpfetch.Client the scanners need.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*httpfetch.Response, error)
	GetDocument(ctx context.Context, rawURL string) (*goquery.Document, *httpfetch.Response, error)
}

// DefaultPlatformDomains host newsletters; links to them are never stories.
var DefaultPlatformDomains = []string{
	"substack.com", "beehiiv.com", "mailchimp.com", "list-manage.com",
	"convertkit.com", "kit.com", "buttondown.email", "ghost.io",
	"mailerlite.com", "campaign-archive.com",
}

// DefaultBlockedLinkDomains are social links skipped during extraction.
var DefaultBlockedLinkDomains = []string{"twitter.com", "x.com", "linkedin.com"}

// Options bounds the parsers.
type Options struct {
	MaxEditions        int
	MaxStories         int
	SiblingWindow      int
	MinImageWidth      int
	PlatformDomains    []string
	BlockedLinkDomains []string
}

// DefaultOptions returns the standard bounds.
func DefaultOptions() Options {
	return Options{
		MaxEditions:        5,
		MaxStories:         12,
		SiblingWindow:      8,
		MinImageWidth:      100,
		PlatformDomains:    DefaultPlatformDomains,
		BlockedLinkDomains: DefaultBlockedLinkDomains,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxEditions <= 0 {
		o.MaxEditions = def.MaxEditions
	}
	if o.MaxStories <= 0 {
		o.MaxStories = def.MaxStories
	}
	if o.SiblingWindow <= 0 {
		o.SiblingWindow = def.SiblingWindow
	}
	if o.MinImageWidth <= 0 {
		o.MinImageWidth = def.MinImageWidth
	}
	if o.PlatformDomains == nil {
		o.PlatformDomains = def.PlatformDomains
	}
	if o.BlockedLinkDomains == nil {
		o.BlockedLinkDomains = def.BlockedLinkDomains
	}
	return o
}

func newID() string {
	return uuid.NewString()
}

// runeLen counts characters, not bytes, so thresholds hold for any script.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return clip(s, n) + "..."
}

func withTags(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := map[string]struct{}{}
	for _, tags := range [][]string{base, extra} {
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
