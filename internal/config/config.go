package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"StoryScanner/internal/domain"
)

const (
	configPathEnv     = "STORY_SCANNER_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	outputPathEnv     = "OUTPUT_PATH"
	logLevelEnv       = "LOG_LEVEL"
	httpAddrEnv       = "HTTP_ADDR"
	userAgentEnv      = "USER_AGENT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	HTTP       HTTPConfig       `yaml:"http"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Images     ImagesConfig     `yaml:"images"`
	Output     OutputConfig     `yaml:"output"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Sites      []SiteConfig     `yaml:"sites"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig tunes the shared fetcher.
type HTTPConfig struct {
	UserAgent         string        `yaml:"userAgent"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	MaxBodyBytes      int64         `yaml:"maxBodyBytes"`
}

// PipelineConfig bounds parsing and enrichment.
type PipelineConfig struct {
	MaxEditions       int           `yaml:"maxEditions"`
	MaxStories        int           `yaml:"maxStories"`
	EnrichConcurrency int           `yaml:"enrichConcurrency"`
	ResolveTimeout    time.Duration `yaml:"resolveTimeout"`
	SiblingWindow     int           `yaml:"siblingWindow"`
	MinImageWidth     int           `yaml:"minImageWidth"`
	NewestFirst       bool          `yaml:"newestFirst"`
}

// ClassifierConfig overrides thresholds; phrase lists extend the defaults.
type ClassifierConfig struct {
	MinTitleLength   int      `yaml:"minTitleLength"`
	MinSummaryLength int      `yaml:"minSummaryLength"`
	UIPhrases        []string `yaml:"uiPhrases"`
	NoisePhrases     []string `yaml:"noisePhrases"`
}

// ImagesConfig lists domains and fragments used around thumbnails.
type ImagesConfig struct {
	GenericFragments []string `yaml:"genericFragments"`
	SocialDomains    []string `yaml:"socialDomains"`
	PlatformDomains  []string `yaml:"platformDomains"`
}

// OutputConfig points at the payload file.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig describes the optional snapshot database. An empty DSN
// disables it.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Retain int    `yaml:"retain"`
}

// Enabled reports whether a snapshot database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.DSN != ""
}

// ServerConfig drives serve mode.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name         string            `yaml:"name"`
	Scanner      string            `yaml:"scanner"`
	Kind         string            `yaml:"kind"`
	URL          string            `yaml:"url"`
	Limit        int               `yaml:"limit"`
	SummaryLimit int               `yaml:"summaryLimit"`
	Tags         []string          `yaml:"tags"`
	Options      map[string]string `yaml:"options"`
}

// SourceKind returns the configured kind, or the one implied by the scanner.
func (s SiteConfig) SourceKind() domain.SourceKind {
	if s.Kind != "" {
		return domain.SourceKind(s.Kind)
	}
	switch s.Scanner {
	case "forum":
		return domain.KindForum
	case "feed":
		return domain.KindNewsletter
	default:
		return domain.KindArticle
	}
}

// Load reads YAML configuration (if present) and applies environment
// overrides. path wins over STORY_SCANNER_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

// Parse decodes raw YAML without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports sites that cannot be scanned.
func (c Config) Validate() error {
	var errs []error
	seen := map[string]struct{}{}
	for i, site := range c.Sites {
		if site.Name == "" {
			errs = append(errs, fmt.Errorf("sites[%d]: name is required", i))
		}
		if _, dup := seen[site.Name]; dup && site.Name != "" {
			errs = append(errs, fmt.Errorf("sites[%d]: duplicate name %q", i, site.Name))
		}
		seen[site.Name] = struct{}{}
		if site.Scanner == "" {
			errs = append(errs, fmt.Errorf("sites[%d]: scanner is required", i))
		}
		if site.URL == "" {
			errs = append(errs, fmt.Errorf("sites[%d]: url is required", i))
		}
	}
	if c.Output.Path == "" && !c.Database.Enabled() {
		errs = append(errs, errors.New("output.path or database.dsn is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(outputPathEnv); v != "" {
		c.Output.Path = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(userAgentEnv); v != "" {
		c.HTTP.UserAgent = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.HTTP.UserAgent != "" {
		base.HTTP.UserAgent = override.HTTP.UserAgent
	}
	if override.HTTP.Timeout > 0 {
		base.HTTP.Timeout = override.HTTP.Timeout
	}
	if override.HTTP.RequestsPerSecond > 0 {
		base.HTTP.RequestsPerSecond = override.HTTP.RequestsPerSecond
	}
	if override.HTTP.Burst > 0 {
		base.HTTP.Burst = override.HTTP.Burst
	}
	if override.HTTP.MaxBodyBytes > 0 {
		base.HTTP.MaxBodyBytes = override.HTTP.MaxBodyBytes
	}

	if override.Pipeline.MaxEditions > 0 {
		base.Pipeline.MaxEditions = override.Pipeline.MaxEditions
	}
	if override.Pipeline.MaxStories > 0 {
		base.Pipeline.MaxStories = override.Pipeline.MaxStories
	}
	if override.Pipeline.EnrichConcurrency > 0 {
		base.Pipeline.EnrichConcurrency = override.Pipeline.EnrichConcurrency
	}
	if override.Pipeline.ResolveTimeout > 0 {
		base.Pipeline.ResolveTimeout = override.Pipeline.ResolveTimeout
	}
	if override.Pipeline.SiblingWindow > 0 {
		base.Pipeline.SiblingWindow = override.Pipeline.SiblingWindow
	}
	if override.Pipeline.MinImageWidth > 0 {
		base.Pipeline.MinImageWidth = override.Pipeline.MinImageWidth
	}
	if override.Pipeline.NewestFirst {
		base.Pipeline.NewestFirst = true
	}

	if override.Classifier.MinTitleLength > 0 {
		base.Classifier.MinTitleLength = override.Classifier.MinTitleLength
	}
	if override.Classifier.MinSummaryLength > 0 {
		base.Classifier.MinSummaryLength = override.Classifier.MinSummaryLength
	}
	base.Classifier.UIPhrases = append(base.Classifier.UIPhrases, override.Classifier.UIPhrases...)
	base.Classifier.NoisePhrases = append(base.Classifier.NoisePhrases, override.Classifier.NoisePhrases...)

	if len(override.Images.GenericFragments) > 0 {
		base.Images.GenericFragments = override.Images.GenericFragments
	}
	if len(override.Images.SocialDomains) > 0 {
		base.Images.SocialDomains = override.Images.SocialDomains
	}
	if len(override.Images.PlatformDomains) > 0 {
		base.Images.PlatformDomains = override.Images.PlatformDomains
	}

	if override.Output.Path != "" {
		base.Output.Path = override.Output.Path
	}

	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.Retain > 0 {
		base.Database.Retain = override.Database.Retain
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.RefreshInterval > 0 {
		base.Server.RefreshInterval = override.Server.RefreshInterval
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{
			Timeout:           20 * time.Second,
			RequestsPerSecond: 2,
			Burst:             4,
			MaxBodyBytes:      4 << 20,
		},
		Pipeline: PipelineConfig{
			MaxEditions:       5,
			MaxStories:        12,
			EnrichConcurrency: 12,
			ResolveTimeout:    10 * time.Second,
			SiblingWindow:     8,
			MinImageWidth:     100,
		},
		Classifier: ClassifierConfig{MinTitleLength: 15, MinSummaryLength: 40},
		Images: ImagesConfig{
			GenericFragments: []string{
				"substack.com/image/fetch",
				"bensbites.com/logo",
				"therundown.ai/logo",
				"redditstatic",
			},
		},
		Output:   OutputConfig{Path: "data/payload.json"},
		Database: DatabaseConfig{Driver: "postgres", Retain: 30},
		Server:   ServerConfig{Addr: ":8080", RefreshInterval: 24 * time.Hour},
		Sites: []SiteConfig{
			{
				Name:    "Reddit",
				Scanner: "forum",
				URL:     "https://www.reddit.com/r/ArtificialInteligence/new.json?limit=15",
				Limit:   15,
				Tags:    []string{"Reddit"},
			},
			{
				Name:    "Ben's Bites",
				Scanner: "feed",
				URL:     "https://www.bensbites.com/feed",
				Tags:    []string{"AI"},
			},
			{
				Name:    "The Rundown AI",
				Scanner: "html",
				URL:     "https://www.therundown.ai",
				Tags:    []string{"AI"},
				Options: map[string]string{"latestSelector": `a[href^="/p/"]`},
			},
		},
	}
}
