// Package pipeline wires the crawler, repository, translator and rewriter
// into the four flows the service exposes: map, ingest, translate and render.
package pipeline

import (
	"log/slog"
	"time"

	"github.com/jonathan/sitetranslate/internal/crawling"
	"github.com/jonathan/sitetranslate/internal/db"
	"github.com/jonathan/sitetranslate/internal/fetch"
	"github.com/jonathan/sitetranslate/internal/translation"
)

// Service runs the flows against injected collaborators.
type Service struct {
	repo           db.Repository
	translator     translation.TextTranslator
	crawlFetcher   fetch.Fetcher
	renderFetcher  fetch.Fetcher
	maxPages       int
	fetchTimeout   time.Duration
	renderTimeout  time.Duration
	upstreamScheme string
	logger         *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCrawlFetcher sets the fetcher used by map and ingest.
func WithCrawlFetcher(f fetch.Fetcher) Option {
	return func(s *Service) { s.crawlFetcher = f }
}

// WithRenderFetcher sets the fetcher used by render.
func WithRenderFetcher(f fetch.Fetcher) Option {
	return func(s *Service) { s.renderFetcher = f }
}

// WithMaxPages sets the default crawl page cap.
func WithMaxPages(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithFetchTimeout bounds each crawl or ingest fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithRenderTimeout bounds the upstream fetch behind a render.
func WithRenderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.renderTimeout = d
		}
	}
}

// WithUpstreamScheme sets the scheme used to reach stored domains. Defaults to https.
func WithUpstreamScheme(scheme string) Option {
	return func(s *Service) {
		if scheme == "http" || scheme == "https" {
			s.upstreamScheme = scheme
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service.
func NewService(repo db.Repository, translator translation.TextTranslator, opts ...Option) *Service {
	s := &Service{
		repo:           repo,
		translator:     translator,
		maxPages:       crawling.DefaultMaxPages,
		fetchTimeout:   fetch.CrawlTimeout,
		renderTimeout:  fetch.RenderTimeout,
		upstreamScheme: "https",
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.crawlFetcher == nil {
		s.crawlFetcher = fetch.NewClient(fetch.DefaultOptions())
	}
	if s.renderFetcher == nil {
		s.renderFetcher = fetch.NewClient(fetch.RenderOptions())
	}
	if s.translator == nil {
		s.translator = translation.NewTranslator(nil)
	}
	return s
}

// Repository returns the underlying repository.
func (s *Service) Repository() db.Repository { return s.repo }
