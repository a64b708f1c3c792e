package scanner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"StoryScanner/internal/domain"
)

// Request carries all parameters required to scan one configured site.
type Request struct {
	SiteName     string
	Kind         domain.SourceKind
	URL          string
	Limit        int
	SummaryLimit int
	Tags         []string
	Options      map[string]string
	Now          time.Time
}

// Option returns the named option or fallback when it is unset.
func (r Request) Option(name, fallback string) string {
	if v, ok := r.Options[name]; ok && v != "" {
		return v
	}
	return fallback
}

// Scanner captures a single parsing strategy (forum JSON, RSS editions, HTML pages).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.Story, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s: %w", name, domain.ErrUnknownScanner)
}

// Names lists registered scanners in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
