package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/scanner"
	"StoryScanner/internal/weburl"
)

const (
	htmlScannerName       = "html"
	defaultLatestSelector = `a[href*="/p/"]`
	htmlSummaryLimit      = 400
	htmlTitleMin          = 12
	bulletTextMin         = 30
	bulletPrefixMax       = 50
	bulletTitleLen        = 80
	pageHeadingSelector   = "h1, h2, h3"
)

// pageImageSkip marks author and branding images inside a post body.
var pageImageSkip = []string{"logo", "avatar", "profile", "author"}

// HTMLScanner reads a site's landing page, follows the newest post link and
// extracts stories from that post.
type HTMLScanner struct {
	fetcher Fetcher
	opts    Options
}

// NewHTMLScanner wires the fetcher.
func NewHTMLScanner(fetcher Fetcher, opts Options) *HTMLScanner {
	return &HTMLScanner{fetcher: fetcher, opts: opts.withDefaults()}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return htmlScannerName
}

// Scan resolves the latest post from req.URL and parses it.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Story, error) {
	landing, landingURL, err := h.fetchDocument(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("landing page: %w", err)
	}

	postURL := LatestPostURL(landing, landingURL, req.Option("latestSelector", defaultLatestSelector))
	if postURL == "" {
		return nil, fmt.Errorf("latest post on %s: %w", req.URL, domain.ErrEmptyDocument)
	}

	post, finalURL, err := h.fetchDocument(ctx, postURL)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", postURL, err)
	}
	return h.ParsePage(post, finalURL, req), nil
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, string, error) {
	doc, resp, err := h.fetcher.GetDocument(ctx, pageURL)
	if err != nil {
		return nil, "", err
	}
	final := pageURL
	if resp != nil && resp.URL != "" {
		final = resp.URL
	}
	return doc, final, nil
}

// LatestPostURL returns the first link matching selector, made absolute.
func LatestPostURL(doc *goquery.Document, pageURL, selector string) string {
	var found string
	doc.Find(selector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		found = weburl.Resolve(pageURL, href)
		return found == ""
	})
	return found
}

// ParsePage extracts heading-led stories and linked bullet items from a post.
// Records carry no classification; the caller filters them.
func (h *HTMLScanner) ParsePage(doc *goquery.Document, pageURL string, req scanner.Request) []domain.Story {
	published := PublishedAt(doc, req.Now)
	summaryLimit := orDefault(req.SummaryLimit, htmlSummaryLimit)
	kind := req.Kind
	if kind == "" {
		kind = domain.KindArticle
	}

	newStory := func(title, link, summary, thumb string) domain.Story {
		return domain.Story{
			ID:          newID(),
			Type:        domain.TypeStory,
			Title:       title,
			Source:      req.SiteName,
			URL:         link,
			Summary:     clip(summary, summaryLimit),
			PublishedAt: published,
			Thumbnail:   thumb,
			Tags:        withTags(req.Tags),
			Kind:        kind,
		}
	}

	var stories []domain.Story
	doc.Find(pageHeadingSelector).Each(func(_ int, heading *goquery.Selection) {
		title := normalizeSpace(heading.Text())
		if runeLen(title) < htmlTitleMin {
			return
		}
		link, summary, thumb := h.headingWindow(heading, pageURL)
		if link == "" && summary == "" {
			return
		}
		if link == "" {
			link = pageURL
		}
		stories = append(stories, newStory(title, link, summary, thumb))
	})

	doc.Find("li").Each(func(_ int, item *goquery.Selection) {
		title, link, summary, ok := h.bullet(item, pageURL)
		if !ok {
			return
		}
		stories = append(stories, newStory(title, link, summary, pageImage(item, pageURL)))
	})

	if req.Limit > 0 && len(stories) > req.Limit {
		stories = stories[:req.Limit]
	}
	return stories
}

// headingWindow scans the siblings after heading, bounded by the sibling
// window and the next heading, for a link, a paragraph and an image.
func (h *HTMLScanner) headingWindow(heading *goquery.Selection, pageURL string) (link, summary, thumb string) {
	next := heading.Next()
	for i := 0; next.Length() > 0 && i < h.opts.SiblingWindow; i++ {
		if next.Is(pageHeadingSelector) {
			break
		}
		if link == "" {
			next.Find("a[href]").AddBackFiltered("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
				href, _ := a.Attr("href")
				if u := weburl.Resolve(pageURL, href); u != "" && !weburl.MatchesDomain(u, h.opts.BlockedLinkDomains) {
					link = u
					return false
				}
				return true
			})
		}
		if thumb == "" {
			thumb = pageImage(next, pageURL)
		}
		if summary == "" && next.Is("p") {
			summary = normalizeSpace(next.Text())
		}
		next = next.Next()
	}
	return link, summary, thumb
}

// bullet reads a list item that carries a link and enough text. A short
// "Title: summary" prefix becomes the title; otherwise the text is cut.
func (h *HTMLScanner) bullet(item *goquery.Selection, pageURL string) (title, link, summary string, ok bool) {
	href, exists := item.Find("a[href]").First().Attr("href")
	if !exists {
		return "", "", "", false
	}
	link = weburl.Resolve(pageURL, href)
	if link == "" || weburl.MatchesDomain(link, h.opts.BlockedLinkDomains) {
		return "", "", "", false
	}

	text := normalizeSpace(item.Text())
	if runeLen(text) < bulletTextMin {
		return "", "", "", false
	}

	if idx := strings.Index(text, ":"); idx > 0 && runeLen(text[:idx]) < bulletPrefixMax {
		title = strings.TrimSpace(text[:idx])
		summary = strings.TrimSpace(text[idx+1:])
	} else {
		title = truncate(text, bulletTitleLen)
		summary = text
	}
	return title, link, summary, title != ""
}

// pageImage returns the first absolute image under sel that is not branding.
func pageImage(sel *goquery.Selection, pageURL string) string {
	var found string
	sel.Find("img").AddBackFiltered("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		u := weburl.Resolve(pageURL, src)
		if u == "" {
			return true
		}
		lower := strings.ToLower(u)
		for _, skip := range pageImageSkip {
			if strings.Contains(lower, skip) {
				return true
			}
		}
		found = u
		return false
	})
	return found
}

var publishedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// PublishedAt reads the first time[datetime] of doc, or returns now.
func PublishedAt(doc *goquery.Document, now time.Time) time.Time {
	if now.IsZero() {
		now = time.Now()
	}
	raw, ok := doc.Find("time[datetime]").First().Attr("datetime")
	if !ok {
		return now.UTC()
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return now.UTC()
}
