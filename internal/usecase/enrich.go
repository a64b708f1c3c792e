package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/ports"
	"StoryScanner/internal/weburl"
)

const defaultEnrichConcurrency = 12

// EnrichOptions configures the enrichment worker pool.
type EnrichOptions struct {
	Concurrency      int
	GenericFragments []string
}

// Enricher fills in thumbnails across top-level records and the stories
// nested in editions.
type Enricher struct {
	resolver  ports.ImageResolver
	workers   int
	fragments []string
	logger    *slog.Logger
}

// NewEnricher wires the image resolver with a bounded worker count.
func NewEnricher(resolver ports.ImageResolver, opts EnrichOptions, logger *slog.Logger) *Enricher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultEnrichConcurrency
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fragments := make([]string, 0, len(opts.GenericFragments))
	for _, f := range opts.GenericFragments {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			fragments = append(fragments, f)
		}
	}
	return &Enricher{
		resolver:  resolver,
		workers:   opts.Concurrency,
		fragments: fragments,
		logger:    logger,
	}
}

// NeedsImage reports whether s has no usable thumbnail: none at all, one
// that is not an absolute http(s) URL, or a known generic placeholder.
func (e *Enricher) NeedsImage(s domain.Story) bool {
	if s.Thumbnail == "" || !weburl.IsAbsoluteHTTP(s.Thumbnail) {
		return true
	}
	lower := strings.ToLower(s.Thumbnail)
	for _, f := range e.fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// Enrich returns a copy of records with thumbnails resolved where possible.
// Records that needed an image and got none end up with no thumbnail.
func (e *Enricher) Enrich(ctx context.Context, records []domain.Story) []domain.Story {
	out := make([]domain.Story, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}
	if e.resolver == nil {
		return out
	}

	var targets []*domain.Story
	for i := range out {
		if e.NeedsImage(out[i]) {
			targets = append(targets, &out[i])
		}
		for j := range out[i].Stories {
			if e.NeedsImage(out[i].Stories[j]) {
				targets = append(targets, &out[i].Stories[j])
			}
		}
	}
	if len(targets) == 0 {
		return out
	}

	var resolved, cleared atomic.Int64
	jobs := make(chan *domain.Story)
	var wg sync.WaitGroup

	workers := min(e.workers, len(targets))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				switch e.enrichOne(ctx, rec) {
				case outcomeResolved:
					resolved.Add(1)
				case outcomeCleared:
					cleared.Add(1)
				}
			}
		}()
	}

	for _, t := range targets {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	e.logger.Info("enrichment finished",
		"targets", len(targets),
		"resolved", resolved.Load(),
		"cleared", cleared.Load(),
		"workers", workers)
	return out
}

type outcome int

const (
	outcomeMissed outcome = iota
	outcomeResolved
	outcomeCleared
)

// enrichOne owns rec exclusively; no other worker touches it.
func (e *Enricher) enrichOne(ctx context.Context, rec *domain.Story) outcome {
	if ctx.Err() == nil {
		if thumb, ok := e.resolver.Resolve(ctx, rec.URL); ok && weburl.IsAbsoluteHTTP(thumb) {
			rec.Thumbnail = thumb
			return outcomeResolved
		}
	}
	e.logger.Debug("no image", "url", rec.URL)
	if rec.Thumbnail != "" {
		rec.Thumbnail = ""
		return outcomeCleared
	}
	return outcomeMissed
}
