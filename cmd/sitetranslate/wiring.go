package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jonathan/sitetranslate/internal/config"
	"github.com/jonathan/sitetranslate/internal/db"
	"github.com/jonathan/sitetranslate/internal/db/sqlite"
	"github.com/jonathan/sitetranslate/internal/fetch"
	"github.com/jonathan/sitetranslate/internal/llm"
	"github.com/jonathan/sitetranslate/internal/pipeline"
	"github.com/jonathan/sitetranslate/internal/translation"
)

// openRepository connects the configured store and makes sure its schema exists.
func openRepository(ctx context.Context, cfg *config.Config) (db.Repository, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// newBackend builds the configured translation backend.
func newBackend(ctx context.Context, cfg *config.Config) (translation.Backend, func(), error) {
	tc := cfg.Translation
	switch tc.Provider {
	case config.ProviderLibreTranslate:
		backend := translation.NewLibreTranslate(tc.BaseURL,
			translation.WithAPIKey(tc.APIKey),
			translation.WithRequestsPerSecond(tc.RequestsPerSecond),
			translation.WithHTTPClient(&http.Client{Timeout: tc.Timeout}),
		)
		return backend, func() {}, nil
	case config.ProviderGemini:
		client, err := llm.NewClient(ctx, llm.DefaultConfig(), tc.GeminiAPIKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return translation.NewLLMBackend(client), func() { _ = client.Close() }, nil
	case config.ProviderNone:
		return translation.Identity{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown translation provider %q", tc.Provider)
	}
}

// newCache builds the configured translation cache, or nil for none. An
// unreachable redis falls back to the in-memory cache.
func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (translation.Cache, func()) {
	cc := cfg.Translation.Cache
	switch cc.Backend {
	case config.CacheRedis:
		rc := translation.NewRedisCache(cc.RedisAddr, cc.TTL)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("Redis cache unavailable, using in-memory cache", "addr", cc.RedisAddr, "error", err)
			_ = rc.Close()
			return translation.NewMemoryCache(cc.MaxEntries), func() {}
		}
		return rc, func() { _ = rc.Close() }
	case config.CacheMemory:
		return translation.NewMemoryCache(cc.MaxEntries), func() {}
	default:
		return nil, func() {}
	}
}

// newTranslator assembles backend, cache and the failure-absorbing client.
func newTranslator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*translation.Translator, func(), error) {
	backend, closeBackend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	cache, closeCache := newCache(ctx, cfg, logger)
	if cache != nil {
		backend = translation.NewCachedBackend(backend, cache, logger)
	}

	tr := translation.NewTranslator(backend,
		translation.WithTimeout(cfg.Translation.Timeout),
		translation.WithLogger(logger),
	)
	return tr, func() {
		closeCache()
		closeBackend()
	}, nil
}

// newService builds the flow service with fetchers shaped by the crawl config.
func newService(cfg *config.Config, repo db.Repository, tr translation.TextTranslator, logger *slog.Logger) *pipeline.Service {
	crawlOpts := &fetch.Options{
		Timeout:      cfg.Crawl.FetchTimeout,
		UserAgent:    cfg.Crawl.UserAgent,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
	}
	renderOpts := *crawlOpts
	renderOpts.Timeout = cfg.Crawl.RenderTimeout

	return pipeline.NewService(repo, tr,
		pipeline.WithCrawlFetcher(fetch.NewClient(crawlOpts)),
		pipeline.WithRenderFetcher(fetch.NewClient(&renderOpts)),
		pipeline.WithMaxPages(cfg.Crawl.MaxPages),
		pipeline.WithFetchTimeout(cfg.Crawl.FetchTimeout),
		pipeline.WithRenderTimeout(cfg.Crawl.RenderTimeout),
		pipeline.WithUpstreamScheme(cfg.Server.UpstreamScheme),
		pipeline.WithLogger(logger),
	)
}
