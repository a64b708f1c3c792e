package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/infrastructure/httpfetch"
	"StoryScanner/internal/scanner"
)

const landingPage = `<html><body>
<nav><a href="/about">About</a></nav>
<div role="article"><a href="/p/latest-issue">Latest issue</a></div>
<div role="article"><a href="/p/older-issue">Older issue</a></div>
</body></html>`

const postPage = `<html><body>
<time datetime="2024-03-05T08:00:00Z">March 5</time>
<img src="/static/logo.png">
<h1>The Rundown: AI news for busy people</h1>
<h2>Anthropic Releases a Faster Model Family</h2>
<img src="https://cdn.example.com/author/avatar.png">
<p>The new family cuts latency in half while keeping quality across most tasks.</p>
<p>Read the <a href="https://anthropic.com/news/faster-models">announcement</a>.</p>
<img src="https://cdn.example.com/story.jpg">
<h2>Short</h2>
<h3>Quick Hits From Around The Industry</h3>
<ul>
<li><a href="https://example.org/chip">Nvidia unveils chip</a>: The new accelerator doubles memory bandwidth for training.</li>
<li><a href="https://twitter.com/x">Tweet</a> something that is long enough to pass the check</li>
<li>tiny <a href="https://e.com">x</a></li>
<li><a href="https://example.org/long">A very long bullet without any separator that keeps going well past the eighty character title cut</a></li>
</ul>
</body></html>`

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestHTMLScanner_ParsePage(t *testing.T) {
	t.Parallel()

	h := NewHTMLScanner(nil, Options{})
	stories := h.ParsePage(parseDoc(t, postPage), "https://www.therundown.ai/p/latest-issue", scanner.Request{
		SiteName: "The Rundown AI",
		Tags:     []string{"AI"},
	})
	require.Len(t, stories, 4)

	published := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)

	first := stories[0]
	assert.Equal(t, "Anthropic Releases a Faster Model Family", first.Title)
	assert.Equal(t, "https://anthropic.com/news/faster-models", first.URL)
	assert.Equal(t, "The new family cuts latency in half while keeping quality across most tasks.", first.Summary)
	assert.Equal(t, "https://cdn.example.com/story.jpg", first.Thumbnail)
	assert.Equal(t, published, first.PublishedAt)
	assert.Equal(t, domain.KindArticle, first.Kind)
	assert.Equal(t, []string{"AI"}, first.Tags)

	assert.Equal(t, "Quick Hits From Around The Industry", stories[1].Title)
	assert.Equal(t, "https://example.org/chip", stories[1].URL)

	bullet := stories[2]
	assert.Equal(t, "Nvidia unveils chip", bullet.Title)
	assert.Equal(t, "The new accelerator doubles memory bandwidth for training.", bullet.Summary)
	assert.Equal(t, "https://example.org/chip", bullet.URL)

	long := stories[3]
	assert.True(t, strings.HasSuffix(long.Title, "..."))
	assert.Equal(t, 83, len(long.Title))
	assert.Equal(t, "https://example.org/long", long.URL)
}

func TestHTMLScanner_HeadingWithoutLinkUsesPage(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
<h2>Researchers Map The Model Internals</h2>
<p>A summary paragraph describing the interpretability result in plain words.</p>
</body></html>`)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	stories := NewHTMLScanner(nil, Options{}).ParsePage(doc, "https://site.example.com/p/1", scanner.Request{Now: now})
	require.Len(t, stories, 1)
	assert.Equal(t, "https://site.example.com/p/1", stories[0].URL)
	assert.Equal(t, now, stories[0].PublishedAt)
}

func TestLatestPostURL(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, landingPage)
	assert.Equal(t, "https://www.example.com/p/latest-issue", LatestPostURL(doc, "https://www.example.com/", `a[href*="/p/"]`))
	assert.Equal(t, "", LatestPostURL(doc, "https://www.example.com/", `a.missing`))
}

func TestHTMLScanner_Scan(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(landingPage))
	})
	mux.HandleFunc("/p/latest-issue", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(postPage))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	h := NewHTMLScanner(httpfetch.New(server.Client(), httpfetch.Options{}), Options{})
	assert.Equal(t, "html", h.Name())

	stories, err := h.Scan(context.Background(), scanner.Request{SiteName: "Rundown", URL: server.URL + "/", Limit: 2})
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, "Anthropic Releases a Faster Model Family", stories[0].Title)
}

func TestHTMLScanner_ScanNoLatestPost(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="/about">About</a></body></html>`))
	}))
	defer server.Close()

	h := NewHTMLScanner(httpfetch.New(server.Client(), httpfetch.Options{}), Options{})
	_, err := h.Scan(context.Background(), scanner.Request{URL: server.URL})
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestHTMLScanner_HeadingWindowStopsAtNextHeading(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
<h2>Robots Learn New Household Chores</h2>
<p>A short note on household robots with no link of its own attached.</p>
<h2>Chipmakers Report Record Quarter</h2>
<p>Demand for accelerators kept growing through the whole quarter.</p>
<p>Full story at the <a href="https://chips.example.org/record">company site</a>.</p>
</body></html>`)

	page := "https://site.example.com/p/2"
	stories := NewHTMLScanner(nil, Options{}).ParsePage(doc, page, scanner.Request{})
	require.Len(t, stories, 2)

	assert.Equal(t, "Robots Learn New Household Chores", stories[0].Title)
	assert.Equal(t, page, stories[0].URL, "the next story's link belongs to the next heading")
	assert.Equal(t, "A short note on household robots with no link of its own attached.", stories[0].Summary)

	assert.Equal(t, "https://chips.example.org/record", stories[1].URL)
	assert.Equal(t, "Demand for accelerators kept growing through the whole quarter.", stories[1].Summary)
}

func TestHTMLScanner_CountsCharacters(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `<html><body>
<h2>新モデル公開</h2>
<p>A paragraph that would otherwise become the summary of this heading.</p>
<ul>
<li><a href="https://example.org/short">新しいモデルが公開されました</a></li>
<li><a href="https://example.org/jp">人工知能の新しい研究成果が発表されました</a>: 研究チームは大規模な実験で性能向上を確認した</li>
</ul>
</body></html>`)

	stories := NewHTMLScanner(nil, Options{}).ParsePage(doc, "https://site.example.com/p/3", scanner.Request{})
	require.Len(t, stories, 1, "short titles and bullets are measured in characters")
	assert.Equal(t, "人工知能の新しい研究成果が発表されました", stories[0].Title)
	assert.Equal(t, "研究チームは大規模な実験で性能向上を確認した", stories[0].Summary)
	assert.Equal(t, "https://example.org/jp", stories[0].URL)
}

func TestHTMLScanner_ScanEmptyPost(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(landingPage))
	})
	mux.HandleFunc("/p/latest-issue", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("   \n"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	h := NewHTMLScanner(httpfetch.New(server.Client(), httpfetch.Options{}), Options{})
	_, err := h.Scan(context.Background(), scanner.Request{URL: server.URL + "/"})
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}
