package parser

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/ports"
	"StoryScanner/internal/weburl"
)

const (
	resumeBlockMin    = 60
	resumeBlocks      = 2
	resumeLimit       = 350
	nestedTitleMin    = 15
	nestedBlockMin    = 20
	nestedBlockEnough = 80
	nestedBlocks      = 3
)

// resumeBoilerplate marks body blocks that never make a teaser.
var resumeBoilerplate = []string{
	"subscribe", "view in browser", "view online", "unsubscribe",
	"forwarded this", "sign up", "read online", "update your preferences",
}

const headingSelector = "h1, h2, h3, h4, h5, h6"

// ExtractResume joins the first two long, non-boilerplate text blocks of the
// body and truncates the result. Only innermost blocks count, so a list item
// wrapping a paragraph is read once.
func ExtractResume(body *goquery.Selection) string {
	var parts []string
	body.Find("p, li, blockquote").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		if block.Find("p, li, blockquote").Length() > 0 {
			return true
		}
		text := normalizeSpace(block.Text())
		if runeLen(text) <= resumeBlockMin {
			return true
		}
		lower := strings.ToLower(text)
		for _, phrase := range resumeBoilerplate {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
		parts = append(parts, text)
		return len(parts) < resumeBlocks
	})
	return truncate(strings.Join(parts, " "), resumeLimit)
}

// nestedExtractor pulls linked stories out of an edition body.
type nestedExtractor struct {
	filter   ports.Classifier
	opts     Options
	excluded []string
}

func newNestedExtractor(filter ports.Classifier, opts Options, ownURLs ...string) *nestedExtractor {
	excluded := make([]string, 0, len(opts.PlatformDomains)+len(opts.BlockedLinkDomains)+len(ownURLs))
	excluded = append(excluded, opts.PlatformDomains...)
	excluded = append(excluded, opts.BlockedLinkDomains...)
	for _, u := range ownURLs {
		if host := weburl.Host(u); host != "" {
			excluded = append(excluded, host)
		}
	}
	return &nestedExtractor{filter: filter, opts: opts, excluded: excluded}
}

// Extract walks headings and leading emphasis that wrap a link. Each yields
// at most one story; duplicates by URL keep the first and the list is capped.
func (e *nestedExtractor) Extract(body *goquery.Selection, base string, parent domain.Story, summaryLimit int) []domain.Story {
	var stories []domain.Story
	seen := map[string]struct{}{}

	body.Find(headingSelector + ", strong, b").Each(func(_ int, el *goquery.Selection) {
		if len(stories) >= e.opts.MaxStories {
			return
		}
		if !el.Is(headingSelector) && el.ParentsFiltered(headingSelector).Length() > 0 {
			return
		}
		if el.ParentsFiltered("a").Length() > 0 {
			return
		}

		link := el.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		target := weburl.Resolve(base, href)
		if target == "" || weburl.MatchesDomain(target, e.excluded) {
			return
		}
		if _, dup := seen[target]; dup {
			return
		}

		title := normalizeSpace(el.Text())
		if runeLen(title) < nestedTitleMin {
			return
		}
		if !el.Is(headingSelector) {
			if block := el.Closest("p, li"); block.Length() > 0 && !strings.HasPrefix(normalizeSpace(block.Text()), title) {
				return
			}
		}

		summary := clip(e.summaryAfter(el, title), summaryLimit)
		if e.filter != nil && !e.filter.IsRealArticle(title, summary, parent.Kind) {
			return
		}

		seen[target] = struct{}{}
		stories = append(stories, domain.Story{
			ID:          newID(),
			Type:        domain.TypeStory,
			Title:       title,
			Source:      parent.Source,
			URL:         target,
			Summary:     summary,
			PublishedAt: parent.PublishedAt,
			Tags:        append([]string(nil), parent.Tags...),
			Kind:        parent.Kind,
		})
	})
	return stories
}

// summaryAfter gathers up to three sibling blocks after el. Emphasis inside a
// paragraph contributes the rest of that paragraph first. A block longer than
// nestedBlockEnough ends the scan, as does the next heading.
func (e *nestedExtractor) summaryAfter(el *goquery.Selection, title string) string {
	var parts []string
	anchor := el
	if !el.Is(headingSelector) {
		if block := el.Closest("p, li"); block.Length() > 0 {
			anchor = block
			rest := strings.TrimPrefix(normalizeSpace(block.Text()), title)
			rest = strings.TrimLeft(rest, " :-–—.|")
			if runeLen(rest) > nestedBlockMin {
				parts = append(parts, rest)
				if runeLen(rest) > nestedBlockEnough {
					return rest
				}
			}
		}
	}

	next := anchor.Next()
	for i := 0; next.Length() > 0 && i < e.opts.SiblingWindow && len(parts) < nestedBlocks; i++ {
		if next.Is(headingSelector) || startsWithEmphasis(next) {
			break
		}
		text := normalizeSpace(next.Text())
		if runeLen(text) > nestedBlockMin {
			parts = append(parts, text)
			if runeLen(text) > nestedBlockEnough {
				break
			}
		}
		next = next.Next()
	}
	return strings.Join(parts, " ")
}

// startsWithEmphasis reports whether block opens with a linked strong/b, i.e.
// it starts the next story.
func startsWithEmphasis(block *goquery.Selection) bool {
	first := block.Find("strong, b").First()
	lead := normalizeSpace(first.Text())
	if lead == "" || first.Find("a").Length() == 0 {
		return false
	}
	return strings.HasPrefix(normalizeSpace(block.Text()), lead)
}

func publishedOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback.UTC()
	}
	return t.UTC()
}
