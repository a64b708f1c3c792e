package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StoryScanner/internal/classifier"
	"StoryScanner/internal/config"
	"StoryScanner/internal/domain"
	"StoryScanner/internal/scanner"
)

type fakeScanner struct {
	name    string
	stories []domain.Story
	err     error
	seen    []scanner.Request
}

func (f *fakeScanner) Name() string { return f.name }

func (f *fakeScanner) Scan(_ context.Context, req scanner.Request) ([]domain.Story, error) {
	f.seen = append(f.seen, req)
	return f.stories, f.err
}

func TestStrategySource_Collect(t *testing.T) {
	t.Parallel()

	good := &fakeScanner{name: "feed", stories: []domain.Story{
		{Type: domain.TypeEdition, Title: "Issue", URL: "https://letter.example.com/p/1"},
		{Type: domain.TypeStory, Title: "OpenAI Ships New Reasoning Model", URL: "https://openai.com/a",
			Summary: "A model that reasons through hard problems step by step."},
		{Type: domain.TypeStory, Title: "Our Sponsor Makes Great Tools", URL: "https://sponsor.example.com",
			Summary: "A sponsor message about tools that you absolutely need."},
		{Type: domain.TypeEdition, Title: "", URL: "https://letter.example.com/p/2"},
	}}
	broken := &fakeScanner{name: "html", err: errors.New("boom")}

	reg := scanner.NewRegistry()
	reg.Register(good)
	reg.Register(broken)

	sites := []config.SiteConfig{
		{Name: "Broken", Scanner: "html", URL: "https://broken.example.com"},
		{Name: "Letter", Scanner: "feed", URL: "https://letter.example.com/feed", Tags: []string{"AI"}},
		{Name: "Unknown", Scanner: "nope", URL: "https://x.example.com"},
	}

	src := NewStrategySource(reg, sites, classifier.New(classifier.DefaultOptions()), nil)
	stories, failures := src.Collect(context.Background())

	require.Len(t, stories, 2)
	assert.Equal(t, "Issue", stories[0].Title)
	assert.Equal(t, "Letter", stories[0].Source)
	assert.Equal(t, domain.KindNewsletter, stories[0].Kind)
	assert.Equal(t, "OpenAI Ships New Reasoning Model", stories[1].Title)

	require.Len(t, failures, 2)
	assert.Equal(t, "Broken", failures[0].Site)
	assert.Equal(t, "Unknown", failures[1].Site)
	assert.ErrorIs(t, failures[1], domain.ErrUnknownScanner)

	require.Len(t, good.seen, 1)
	req := good.seen[0]
	assert.Equal(t, "Letter", req.SiteName)
	assert.Equal(t, domain.KindNewsletter, req.Kind)
	assert.Equal(t, []string{"AI"}, req.Tags)
	assert.False(t, req.Now.IsZero())
}

func TestStrategySource_CanceledContext(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	reg.Register(&fakeScanner{name: "feed"})
	src := NewStrategySource(reg, []config.SiteConfig{{Name: "A", Scanner: "feed"}}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stories, failures := src.Collect(ctx)
	assert.Empty(t, stories)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], context.Canceled)
}

type recordingClassifier struct {
	batches [][]domain.Story
}

func (r *recordingClassifier) IsRealArticle(string, string, domain.SourceKind) bool { return true }

func (r *recordingClassifier) Filter(stories []domain.Story) []domain.Story {
	r.batches = append(r.batches, stories)
	return stories[:1]
}

func TestStrategySource_KeepFiltersStampedBatch(t *testing.T) {
	t.Parallel()

	feed := &fakeScanner{name: "feed", stories: []domain.Story{
		{Type: domain.TypeStory, Title: "First", URL: "https://a.example.com"},
		{Type: domain.TypeStory, Title: "", URL: "https://b.example.com"},
		{Type: domain.TypeStory, Title: "Third", URL: "https://c.example.com"},
	}}
	reg := scanner.NewRegistry()
	reg.Register(feed)

	filter := &recordingClassifier{}
	src := NewStrategySource(reg, []config.SiteConfig{{Name: "Letter", Scanner: "feed", URL: "https://letter.example.com/feed"}}, filter, nil)
	stories, failures := src.Collect(context.Background())
	require.Empty(t, failures)

	require.Len(t, filter.batches, 1)
	batch := filter.batches[0]
	require.Len(t, batch, 2, "records without a title never reach the classifier")
	assert.Equal(t, "Letter", batch[0].Source)
	assert.Equal(t, domain.KindNewsletter, batch[1].Kind)

	require.Len(t, stories, 1)
	assert.Equal(t, "First", stories[0].Title)
}
