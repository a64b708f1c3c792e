package imageresolver

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"StoryScanner/internal/weburl"
)

// Candidate weights. Higher wins.
const (
	WeightOpenGraph   = 10
	WeightStructured  = 9
	WeightTwitterCard = 8
	WeightInline      = 5
)

// Candidate is a weighted image URL found on a page.
type Candidate struct {
	Priority int
	URL      string
}

var metaWeights = map[string]int{
	"og:image":            WeightOpenGraph,
	"og:image:url":        WeightOpenGraph,
	"og:image:secure_url": WeightOpenGraph,
	"twitter:image":       WeightTwitterCard,
	"twitter:image:src":   WeightTwitterCard,
}

// inlineSkipKeywords mark decorative body images that never become inline candidates.
var inlineSkipKeywords = []string{"logo", "icon", "banner", "header", "avatar"}

// GenericAssetTokens mark URLs that look like site decoration rather than content.
var GenericAssetTokens = []string{
	"logo", "icon", "favicon", "avatar", "profile", "header", "placeholder",
	"default", "newsletter", "subscribe", "banner", "button", "badge",
	"spacer", "pixel",
}

// Collect gathers weighted candidates from doc, resolving every URL against
// pageURL. The result is sorted by priority, document order kept within a
// priority.
func Collect(doc *goquery.Document, pageURL string, minWidth int) []Candidate {
	var out []Candidate
	add := func(priority int, raw string) {
		if u := weburl.Resolve(pageURL, raw); u != "" {
			out = append(out, Candidate{Priority: priority, URL: u})
		}
	}

	doc.Find("meta").Each(func(_ int, meta *goquery.Selection) {
		key, ok := meta.Attr("property")
		if !ok || key == "" {
			key, _ = meta.Attr("name")
		}
		weight, known := metaWeights[strings.ToLower(strings.TrimSpace(key))]
		if !known {
			return
		}
		content, _ := meta.Attr("content")
		add(weight, content)
	})

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, script *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
			return
		}
		for _, img := range structuredImages(data) {
			add(WeightStructured, img)
		}
	})

	if src := firstLargeImage(doc.Find("body"), pageURL, minWidth, inlineSkipKeywords); src != "" {
		add(WeightInline, src)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// structuredImages walks a decoded JSON-LD value and returns every "image"
// field, either a string, an object with "url", or a list of those.
func structuredImages(v any) []string {
	var out []string
	var walk func(any)
	walk = func(node any) {
		switch n := node.(type) {
		case map[string]any:
			if img, ok := n["image"]; ok {
				out = append(out, imageValues(img)...)
			}
			for k, child := range n {
				if k == "image" {
					continue
				}
				walk(child)
			}
		case []any:
			for _, child := range n {
				walk(child)
			}
		}
	}
	walk(v)
	return out
}

func imageValues(v any) []string {
	switch img := v.(type) {
	case string:
		return []string{img}
	case map[string]any:
		if u, ok := img["url"].(string); ok {
			return []string{u}
		}
	case []any:
		var out []string
		for _, item := range img {
			out = append(out, imageValues(item)...)
		}
		return out
	}
	return nil
}

// firstLargeImage returns the first img under sel whose width attribute is
// missing or above minWidth and whose URL avoids skip keywords.
func firstLargeImage(sel *goquery.Selection, baseURL string, minWidth int, skip []string) string {
	var found string
	sel.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := imageSource(img)
		abs := weburl.Resolve(baseURL, src)
		if abs == "" {
			return true
		}
		if !wideEnough(img, minWidth) {
			return true
		}
		if containsAny(strings.ToLower(abs), skip) {
			return true
		}
		found = abs
		return false
	})
	return found
}

// FirstLargeImage is the inline-image heuristic shared with the edition parser.
func FirstLargeImage(sel *goquery.Selection, baseURL string, minWidth int) string {
	return firstLargeImage(sel, baseURL, minWidth, nil)
}

func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func wideEnough(img *goquery.Selection, minWidth int) bool {
	raw, ok := img.Attr("width")
	if !ok {
		return true
	}
	width, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(raw), "px"))
	if err != nil {
		return true
	}
	return width > minWidth
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
