package parser

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/infrastructure/imageresolver"
	"StoryScanner/internal/ports"
	"StoryScanner/internal/scanner"
	"StoryScanner/internal/weburl"
)

const (
	feedScannerName    = "feed"
	feedSummaryLimit   = 300
	nestedSummaryLimit = 400
)

// FeedScanner turns the most recent RSS/Atom entries into editions with
// nested stories.
type FeedScanner struct {
	fetcher Fetcher
	filter  ports.Classifier
	opts    Options
}

// NewFeedScanner wires the fetcher and the classifier used on nested stories.
func NewFeedScanner(fetcher Fetcher, filter ports.Classifier, opts Options) *FeedScanner {
	return &FeedScanner{fetcher: fetcher, filter: filter, opts: opts.withDefaults()}
}

// Name identifies the strategy inside the registry.
func (f *FeedScanner) Name() string {
	return feedScannerName
}

// Scan fetches and parses the feed at req.URL.
func (f *FeedScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Story, error) {
	resp, err := f.fetcher.Get(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, fmt.Errorf("feed %s: %w", req.URL, domain.ErrEmptyDocument)
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return f.ParseFeed(feed, req), nil
}

// ParseFeed builds one edition per entry, newest first, capped at the edition
// limit (req.Limit overrides it).
func (f *FeedScanner) ParseFeed(feed *gofeed.Feed, req scanner.Request) []domain.Story {
	if feed == nil {
		return nil
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	items := make([]*gofeed.Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item != nil {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return itemTime(items[i]).After(itemTime(items[j]))
	})

	limit := orDefault(req.Limit, f.opts.MaxEditions)
	if len(items) > limit {
		items = items[:limit]
	}

	base := req.URL
	if weburl.IsAbsoluteHTTP(feed.Link) {
		base = feed.Link
	}
	feedImage := ""
	if feed.Image != nil {
		feedImage = weburl.Resolve(base, feed.Image.URL)
	}

	editions := make([]domain.Story, 0, len(items))
	for _, item := range items {
		edition, ok := f.buildEdition(item, base, feedImage, req, now)
		if ok {
			editions = append(editions, edition)
		}
	}
	return editions
}

func (f *FeedScanner) buildEdition(item *gofeed.Item, base, feedImage string, req scanner.Request, now time.Time) (domain.Story, bool) {
	link := weburl.Resolve(base, item.Link)
	title := normalizeSpace(item.Title)
	if title == "" || link == "" {
		return domain.Story{}, false
	}

	edition := domain.Story{
		ID:          newID(),
		Type:        domain.TypeEdition,
		Title:       title,
		Source:      req.SiteName,
		URL:         link,
		PublishedAt: publishedOr(firstTime(item.PublishedParsed, item.UpdatedParsed), now),
		Tags:        withTags(req.Tags, item.Categories...),
		Kind:        req.Kind,
	}
	if edition.Kind == "" {
		edition.Kind = domain.KindNewsletter
	}

	raw := item.Content
	if strings.TrimSpace(raw) == "" {
		raw = item.Description
	}
	body, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return edition, true
	}
	root := body.Selection

	edition.Summary = clip(summaryText(item.Description, root), orDefault(req.SummaryLimit, feedSummaryLimit))
	edition.Resume = ExtractResume(root)
	edition.Thumbnail = f.leadImage(item, feedImage, root, link)

	extractor := newNestedExtractor(f.filter, f.opts, link, req.URL, base)
	edition.Stories = extractor.Extract(root, link, edition, nestedSummaryLimit)
	return edition, true
}

// leadImage tries an image enclosure, then the feed image, then the first
// large inline image of the body. The parser-derived item image comes last.
func (f *FeedScanner) leadImage(item *gofeed.Item, feedImage string, body *goquery.Selection, base string) string {
	for _, enc := range item.Enclosures {
		if enc == nil || !strings.HasPrefix(strings.ToLower(enc.Type), "image/") {
			continue
		}
		if u := weburl.Resolve(base, enc.URL); u != "" {
			return u
		}
	}
	if feedImage != "" {
		return feedImage
	}
	if u := imageresolver.FirstLargeImage(body, base, f.opts.MinImageWidth); u != "" {
		return u
	}
	if item.Image != nil {
		return weburl.Resolve(base, item.Image.URL)
	}
	return ""
}

// summaryText prefers the plain text of the entry description and falls back
// to the body.
func summaryText(description string, body *goquery.Selection) string {
	if strings.TrimSpace(description) != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(description)); err == nil {
			if text := normalizeSpace(doc.Text()); text != "" {
				return text
			}
		}
	}
	return normalizeSpace(body.Text())
}

func itemTime(item *gofeed.Item) time.Time {
	if t := firstTime(item.PublishedParsed, item.UpdatedParsed); t != nil {
		return *t
	}
	return time.Time{}
}

func firstTime(times ...*time.Time) *time.Time {
	for _, t := range times {
		if t != nil && !t.IsZero() {
			return t
		}
	}
	return nil
}
