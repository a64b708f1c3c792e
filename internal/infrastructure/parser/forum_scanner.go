package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/scanner"
	"StoryScanner/internal/weburl"
)

const (
	forumDefaultLimit = 15
	forumSummaryLimit = 200
	forumScannerName  = "forum"
)

// Placeholder thumbnails ("self", "default", "nsfw", "spoiler") are not URLs
// and fail the absolute check; hosted placeholder art lives on this host.
const forumPlaceholderHost = "redditstatic"

// ForumScanner maps a flat JSON listing (data.children[].data) to stories.
type ForumScanner struct {
	fetcher Fetcher
}

// NewForumScanner wires the shared fetcher.
func NewForumScanner(fetcher Fetcher) *ForumScanner {
	return &ForumScanner{fetcher: fetcher}
}

// Name identifies the strategy inside the registry.
func (f *ForumScanner) Name() string {
	return forumScannerName
}

// Scan fetches the listing at req.URL and maps every post.
func (f *ForumScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Story, error) {
	resp, err := f.fetcher.Get(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	return ParseForum(resp.Body, req)
}

type forumListing struct {
	Data struct {
		Children []struct {
			Data forumPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type forumPost struct {
	Title      string  `json:"title"`
	Permalink  string  `json:"permalink"`
	Selftext   string  `json:"selftext"`
	CreatedUTC float64 `json:"created_utc"`
	Subreddit  string  `json:"subreddit"`
	Thumbnail  string  `json:"thumbnail"`
	Preview    struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

// ParseForum decodes a listing body. Links are built from the listing's own
// origin (or options["baseURL"]) plus each post's permalink.
func ParseForum(body []byte, req scanner.Request) ([]domain.Story, error) {
	var listing forumListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	base := req.Option("baseURL", origin(req.URL))
	limit := orDefault(req.Limit, forumDefaultLimit)
	summaryLimit := orDefault(req.SummaryLimit, forumSummaryLimit)
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	stories := make([]domain.Story, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if len(stories) >= limit {
			break
		}
		post := child.Data
		title := normalizeSpace(post.Title)
		link := weburl.Resolve(base, post.Permalink)
		if title == "" || link == "" {
			continue
		}

		published := now.UTC()
		if post.CreatedUTC > 0 {
			sec, frac := math.Modf(post.CreatedUTC)
			published = time.Unix(int64(sec), int64(frac*1e9)).UTC()
		}

		stories = append(stories, domain.Story{
			ID:          newID(),
			Type:        domain.TypeStory,
			Title:       title,
			Source:      req.SiteName,
			URL:         link,
			Summary:     clip(strings.TrimSpace(post.Selftext), summaryLimit),
			PublishedAt: published,
			Thumbnail:   forumThumbnail(post),
			Tags:        withTags(req.Tags, post.Subreddit),
			Kind:        domain.KindForum,
		})
	}
	return stories, nil
}

func forumThumbnail(post forumPost) string {
	candidates := make([]string, 0, 2)
	if len(post.Preview.Images) > 0 {
		candidates = append(candidates, post.Preview.Images[0].Source.URL)
	}
	candidates = append(candidates, post.Thumbnail)

	for _, c := range candidates {
		c = strings.ReplaceAll(strings.TrimSpace(c), "&amp;", "&")
		if !weburl.IsAbsoluteHTTP(c) || strings.Contains(strings.ToLower(c), forumPlaceholderHost) {
			continue
		}
		return c
	}
	return ""
}

func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
