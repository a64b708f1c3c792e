package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"StoryScanner/internal/domain"
	"StoryScanner/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source      ports.StorySource
	Enricher    *Enricher
	Store       ports.PayloadStore
	Logger      *slog.Logger
	Clock       func() time.Time
	NewestFirst bool
}

// Pipeline sequences collection, merge, enrichment and persistence.
type Pipeline struct {
	source      ports.StorySource
	enricher    *Enricher
	store       ports.PayloadStore
	logger      *slog.Logger
	clock       func() time.Time
	newestFirst bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		source:      deps.Source,
		enricher:    deps.Enricher,
		store:       deps.Store,
		logger:      logger,
		clock:       clock,
		newestFirst: deps.NewestFirst,
	}
}

// Run performs one full pass and stores the resulting payload. Source and
// enrichment failures only shrink the payload; the returned error is always
// a persistence failure.
func (p *Pipeline) Run(ctx context.Context) (domain.Payload, error) {
	started := p.clock()

	var collected []domain.Story
	if p.source != nil {
		var failures []domain.SourceError
		collected, failures = p.source.Collect(ctx)
		for _, f := range failures {
			p.logger.Warn("source skipped", "site", f.Site, "error", f.Err)
		}
	}

	merged := Merge(collected)
	if p.newestFirst {
		merged = NewestFirst(merged)
	}

	enriched := merged
	if p.enricher != nil {
		enriched = p.enricher.Enrich(ctx, merged)
	}

	payload := domain.NewPayload(p.clock(), enriched)
	records, nested := payload.Count()
	p.logger.Info("pipeline finished",
		"collected", len(collected),
		"deduped", len(merged),
		"records", records,
		"nested", nested,
		"with_images", countWithImages(payload.Articles),
		"elapsed", p.clock().Sub(started).Round(time.Millisecond))

	if p.store == nil {
		return payload, nil
	}
	if err := p.store.Save(ctx, payload); err != nil {
		return payload, fmt.Errorf("save payload: %w", err)
	}
	return payload, nil
}

func countWithImages(records []domain.Story) int {
	n := 0
	for _, r := range records {
		if r.Thumbnail != "" {
			n++
		}
		for _, s := range r.Stories {
			if s.Thumbnail != "" {
				n++
			}
		}
	}
	return n
}
