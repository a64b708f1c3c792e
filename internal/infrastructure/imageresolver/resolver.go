// Package imageresolver finds a representative preview image for a page URL.
package imageresolver

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"StoryScanner/internal/infrastructure/httpfetch"
	"StoryScanner/internal/ports"
	"StoryScanner/internal/weburl"
)

// DefaultSocialDomains block unauthenticated fetches and are never resolved.
var DefaultSocialDomains = []string{
	"twitter.com", "x.com", "linkedin.com", "instagram.com",
	"facebook.com", "tiktok.com", "threads.net",
}

// Fetcher is the subset of httpfetch.Client the resolver needs.
type Fetcher interface {
	GetDocument(ctx context.Context, rawURL string) (*goquery.Document, *httpfetch.Response, error)
}

// Options tunes resolution.
type Options struct {
	Timeout       time.Duration
	MinImageWidth int
	SocialDomains []string
}

// Resolver implements ports.ImageResolver.
type Resolver struct {
	fetcher Fetcher
	opts    Options
	tiers   []Tier
	logger  *slog.Logger
}

var _ ports.ImageResolver = (*Resolver)(nil)

// New builds a Resolver. Zero options fall back to defaults.
func New(fetcher Fetcher, opts Options, logger *slog.Logger) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MinImageWidth <= 0 {
		opts.MinImageWidth = 100
	}
	if len(opts.SocialDomains) == 0 {
		opts.SocialDomains = DefaultSocialDomains
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		fetcher: fetcher,
		opts:    opts,
		tiers:   DefaultTiers(),
		logger:  logger,
	}
}

// Resolve returns an absolute image URL for pageURL, or false when none can
// be found. It never returns an error: every failure means "no image".
func (r *Resolver) Resolve(ctx context.Context, pageURL string) (string, bool) {
	pageURL = strings.TrimSpace(pageURL)
	if !weburl.IsAbsoluteHTTP(pageURL) {
		return "", false
	}
	if weburl.MatchesDomain(pageURL, r.opts.SocialDomains) {
		return "", false
	}
	if thumb, ok := VideoThumbnail(pageURL); ok {
		return thumb, true
	}
	if r.fetcher == nil {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	doc, resp, err := r.fetcher.GetDocument(ctx, pageURL)
	if err != nil {
		r.logger.Debug("image fetch failed", "url", pageURL, "error", err)
		return "", false
	}

	base := pageURL
	if resp != nil && resp.URL != "" {
		base = resp.URL
	}
	return Select(Collect(doc, base, r.opts.MinImageWidth), r.tiers)
}

var youtubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

// VideoThumbnail derives a thumbnail for known video hosts without fetching.
func VideoThumbnail(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := weburl.Host(raw)

	var id string
	switch {
	case host == "youtu.be":
		id = firstSegment(u.Path)
	case host == "youtube.com" || host == "m.youtube.com" || host == "youtube-nocookie.com" || host == "music.youtube.com":
		if u.Path == "/watch" {
			id = u.Query().Get("v")
			break
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/", "/v/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id = firstSegment(strings.TrimPrefix(u.Path, prefix))
				break
			}
		}
	default:
		return "", false
	}

	if !youtubeID.MatchString(id) {
		return "", false
	}
	return "https://img.youtube.com/vi/" + id + "/hqdefault.jpg", true
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}
