package parser

import (
	"context"
	"log/slog"
	"time"

	"StoryScanner/internal/config"
	"StoryScanner/internal/domain"
	"StoryScanner/internal/ports"
	"StoryScanner/internal/scanner"
)

// StrategySource implements StorySource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	filter   ports.Classifier
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.StorySource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, filter ports.Classifier, log *slog.Logger) *StrategySource {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &StrategySource{
		registry: reg,
		sites:    sites,
		filter:   filter,
		logger:   log,
		now:      time.Now,
	}
}

// Collect runs every configured site in order. A failing site is logged and
// reported, and the remaining sites still run.
func (s *StrategySource) Collect(ctx context.Context) ([]domain.Story, []domain.SourceError) {
	var (
		aggregated []domain.Story
		failures   []domain.SourceError
	)
	if s.registry == nil {
		return nil, nil
	}

	s.logger.Debug("collect", "sites", len(s.sites))
	for _, site := range s.sites {
		if err := ctx.Err(); err != nil {
			failures = append(failures, domain.SourceError{Site: site.Name, Err: err})
			continue
		}

		results, err := s.scanSite(ctx, site)
		if err != nil {
			s.logger.Warn("site failed", "site", site.Name, "scanner", site.Scanner, "error", err)
			failures = append(failures, domain.SourceError{Site: site.Name, Err: err})
			continue
		}

		kept := s.keep(results, site)
		s.logger.Info("site scanned", "site", site.Name, "collected", len(results), "kept", len(kept))
		aggregated = append(aggregated, kept...)
	}

	return aggregated, failures
}

func (s *StrategySource) scanSite(ctx context.Context, site config.SiteConfig) ([]domain.Story, error) {
	strategy, err := s.registry.Resolve(site.Scanner)
	if err != nil {
		return nil, err
	}

	req := scanner.Request{
		SiteName:     site.Name,
		Kind:         site.SourceKind(),
		URL:          site.URL,
		Limit:        site.Limit,
		SummaryLimit: site.SummaryLimit,
		Tags:         site.Tags,
		Options:      site.Options,
		Now:          s.now(),
	}
	return strategy.Scan(ctx, req)
}

// keep stamps site identity and filters top-level records. Editions are
// containers and only need a title and a URL.
func (s *StrategySource) keep(results []domain.Story, site config.SiteConfig) []domain.Story {
	kept := make([]domain.Story, 0, len(results))
	for _, story := range results {
		if story.Source == "" {
			story.Source = site.Name
		}
		if story.Kind == "" {
			story.Kind = site.SourceKind()
		}
		if story.Title == "" || story.URL == "" {
			continue
		}
		kept = append(kept, story)
	}
	if s.filter == nil {
		return kept
	}
	filtered := s.filter.Filter(kept)
	if rejected := len(kept) - len(filtered); rejected > 0 {
		s.logger.Debug("rejected", "site", site.Name, "count", rejected)
	}
	return filtered
}
