package ports

import (
	"context"
	"time"

	"StoryScanner/internal/domain"
)

// StorySource collects candidate records from every configured site.
// Per-site failures are reported, never fatal.
type StorySource interface {
	Collect(ctx context.Context) ([]domain.Story, []domain.SourceError)
}

// Classifier decides whether a candidate is genuine editorial content.
type Classifier interface {
	IsRealArticle(title, summary string, kind domain.SourceKind) bool
	Filter(stories []domain.Story) []domain.Story
}

// ImageResolver finds a preview image for a destination URL.
type ImageResolver interface {
	Resolve(ctx context.Context, url string) (string, bool)
}

// PayloadStore persists finished payloads and serves the latest one.
type PayloadStore interface {
	Save(ctx context.Context, payload domain.Payload) error
	Latest(ctx context.Context) (domain.Payload, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
