// Package httpfetch is the shared content-fetching collaborator: it issues
// browser-like GET requests, enforces per-host politeness and returns bodies.
package httpfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/weburl"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	DefaultAccept       = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	DefaultMaxBodyBytes = 4 << 20
)

// Options configures a Client.
type Options struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxBodyBytes      int64
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrUnexpectedStatus
}

// Response is a fully read response body.
type Response struct {
	URL         string
	ContentType string
	Body        []byte
}

// Client fetches documents. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
	maxBody   int64
	limit     rate.Limit
	burst     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Client. A nil httpClient gets a pooled transport with opts.Timeout.
func New(httpClient *http.Client, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Client{
		http:      httpClient,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
		limit:     limit,
		burst:     opts.Burst,
		limiters:  map[string]*rate.Limiter{},
	}
}

// Get fetches rawURL and returns its body. Non-2xx statuses yield a *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	if !weburl.IsAbsoluteHTTP(rawURL) {
		return nil, fmt.Errorf("fetch %q: %w", rawURL, domain.ErrInvalidURL)
	}

	if err := c.limiter(weburl.Host(rawURL)).Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit %s: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", DefaultAccept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		URL:         finalURL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// GetDocument fetches rawURL and parses it as HTML.
func (c *Client) GetDocument(ctx context.Context, rawURL string) (*goquery.Document, *Response, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, resp, fmt.Errorf("parse %s: %w", rawURL, domain.ErrEmptyDocument)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, resp, fmt.Errorf("parse document: %w", err)
	}
	return doc, resp, nil
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(c.limit, c.burst)
		c.limiters[host] = l
	}
	return l
}
