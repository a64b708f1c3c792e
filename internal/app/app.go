package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"StoryScanner/internal/classifier"
	"StoryScanner/internal/config"
	"StoryScanner/internal/domain"
	"StoryScanner/internal/infrastructure/httpapi"
	"StoryScanner/internal/infrastructure/httpfetch"
	"StoryScanner/internal/infrastructure/imageresolver"
	"StoryScanner/internal/infrastructure/parser"
	"StoryScanner/internal/infrastructure/scheduler"
	"StoryScanner/internal/infrastructure/storage"
	"StoryScanner/internal/logging"
	"StoryScanner/internal/ports"
	"StoryScanner/internal/scanner"
	"StoryScanner/internal/usecase"
)

// Options lets callers swap collaborators, mainly in tests.
type Options struct {
	HTTPClient *http.Client
	Store      ports.PayloadStore
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	store     ports.PayloadStore
	snapshots *storage.SnapshotRepository
}

// New builds a runnable application. The snapshot database is opened only
// when configured and no store override is given.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fetcher := httpfetch.New(opts.HTTPClient, httpfetch.Options{
		UserAgent:         cfg.HTTP.UserAgent,
		Timeout:           cfg.HTTP.Timeout,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
	})

	filter := classifier.New(classifierOptions(cfg.Classifier))

	parserOpts := parser.Options{
		MaxEditions:     cfg.Pipeline.MaxEditions,
		MaxStories:      cfg.Pipeline.MaxStories,
		SiblingWindow:   cfg.Pipeline.SiblingWindow,
		MinImageWidth:   cfg.Pipeline.MinImageWidth,
		PlatformDomains: cfg.Images.PlatformDomains,
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewForumScanner(fetcher))
	registry.Register(parser.NewFeedScanner(fetcher, filter, parserOpts))
	registry.Register(parser.NewHTMLScanner(fetcher, parserOpts))

	source := parser.NewStrategySource(registry, cfg.Sites, filter, logging.Component(baseLogger, "source"))

	resolver := imageresolver.New(fetcher, imageresolver.Options{
		Timeout:       cfg.Pipeline.ResolveTimeout,
		MinImageWidth: cfg.Pipeline.MinImageWidth,
		SocialDomains: cfg.Images.SocialDomains,
	}, logging.Component(baseLogger, "imageresolver"))

	enricher := usecase.NewEnricher(resolver, usecase.EnrichOptions{
		Concurrency:      cfg.Pipeline.EnrichConcurrency,
		GenericFragments: cfg.Images.GenericFragments,
	}, logging.Component(baseLogger, "enricher"))

	a := &Application{cfg: cfg, logger: baseLogger}

	store := opts.Store
	if store == nil {
		var err error
		store, err = a.openStores(ctx)
		if err != nil {
			return nil, err
		}
	}
	a.store = store

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:      source,
		Enricher:    enricher,
		Store:       store,
		Logger:      logging.Component(baseLogger, "pipeline"),
		NewestFirst: cfg.Pipeline.NewestFirst,
	})
	return a, nil
}

func (a *Application) openStores(ctx context.Context) (ports.PayloadStore, error) {
	var stores []ports.PayloadStore
	if a.cfg.Output.Path != "" {
		stores = append(stores, storage.NewFileStore(a.cfg.Output.Path))
	}
	if a.cfg.Database.Enabled() {
		repo, err := storage.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN, a.cfg.Database.Retain)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		a.snapshots = repo
		stores = append(stores, repo)
	}
	if len(stores) == 1 {
		return stores[0], nil
	}
	return storage.NewFanoutStore(stores...), nil
}

// Store returns the payload store in use.
func (a *Application) Store() ports.PayloadStore {
	return a.store
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context) (domain.Payload, error) {
	return a.pipeline.Run(ctx)
}

// Serve refreshes the payload on the configured interval and serves it over
// HTTP until ctx is canceled.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Server.RefreshInterval)
	jobs := usecase.NewScheduler(driver, a.pipeline, logging.Component(a.logger, "scheduler"))
	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	deps := httpapi.Deps{
		Store:     a.store,
		Refresher: jobs.RunNow,
		Logger:    logging.Component(a.logger, "http"),
	}
	if a.snapshots != nil {
		deps.History = a.snapshots
	}
	serveErr := httpapi.New(deps).ListenAndServe(ctx, a.cfg.Server.Addr)

	stopErr := jobs.Stop(context.WithoutCancel(ctx))
	return errors.Join(serveErr, stopErr)
}

// Close releases the snapshot database, if any.
func (a *Application) Close() error {
	if a.snapshots == nil {
		return nil
	}
	return a.snapshots.Close()
}

func classifierOptions(cfg config.ClassifierConfig) classifier.Options {
	opts := classifier.DefaultOptions()
	if cfg.MinTitleLength > 0 {
		opts.MinTitleLength = cfg.MinTitleLength
	}
	if cfg.MinSummaryLength > 0 {
		opts.MinSummaryLength = cfg.MinSummaryLength
	}
	if len(cfg.UIPhrases) > 0 {
		opts.UIPhrases = append(append([]string(nil), opts.UIPhrases...), cfg.UIPhrases...)
	}
	if len(cfg.NoisePhrases) > 0 {
		opts.NoisePhrases = append(append([]string(nil), opts.NoisePhrases...), cfg.NoisePhrases...)
	}
	return opts
}
