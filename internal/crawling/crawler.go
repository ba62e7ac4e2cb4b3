package crawling

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/sitetranslate/internal/extract"
	"github.com/jonathan/sitetranslate/internal/fetch"
	"github.com/jonathan/sitetranslate/internal/observability"
	"github.com/jonathan/sitetranslate/internal/types"
)

// DefaultMaxPages is the page cap applied when none is configured.
const DefaultMaxPages = 20

// Crawler performs bounded breadth-first crawls of a single site.
// Pages are fetched one at a time.
type Crawler struct {
	fetcher        fetch.Fetcher
	maxPages       int
	fetchTimeout   time.Duration
	detectLanguage bool
	logger         *slog.Logger
	onPage         func(types.CrawlResult)
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxPages sets the page cap. Values below 1 are ignored.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithFetchTimeout sets the per-fetch deadline.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithLanguageDetection toggles page language detection.
func WithLanguageDetection(enabled bool) Option {
	return func(c *Crawler) {
		c.detectLanguage = enabled
	}
}

// WithLogger sets the logger used for per-page failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPageCallback registers fn to be called after each recorded page.
func WithPageCallback(fn func(types.CrawlResult)) Option {
	return func(c *Crawler) {
		c.onPage = fn
	}
}

// NewCrawler creates a Crawler that retrieves pages through fetcher.
func NewCrawler(fetcher fetch.Fetcher, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:        fetcher,
		maxPages:       DefaultMaxPages,
		fetchTimeout:   fetch.CrawlTimeout,
		detectLanguage: true,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// frontier is a FIFO queue of paths that remembers everything ever queued.
type frontier struct {
	queue  []string
	queued map[string]bool
}

func newFrontier(seed string) *frontier {
	return &frontier{queue: []string{seed}, queued: map[string]bool{seed: true}}
}

func (f *frontier) push(p string) {
	if f.queued[p] {
		return
	}
	f.queued[p] = true
	f.queue = append(f.queue, p)
}

func (f *frontier) pop() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	p := f.queue[0]
	f.queue = f.queue[1:]
	return p, true
}

func (f *frontier) len() int {
	return len(f.queue)
}

// Crawl visits pages reachable from seedURL until the frontier is empty or
// the page cap is reached. Pages that fail to fetch or parse count as
// visited and are left out of the report. A cancelled context stops the
// crawl and returns the partial report with the context error.
func (c *Crawler) Crawl(ctx context.Context, seedURL string) (*types.CrawlReport, error) {
	seed, err := ParseSeed(seedURL)
	if err != nil {
		return nil, err
	}

	origin := Origin(seed)
	report := &types.CrawlReport{
		Domain: Domain(seed),
		Pages:  make([]types.CrawlResult, 0),
	}

	startPath := seed.Path
	if startPath == "" {
		startPath = "/"
	}

	pending := newFrontier(startPath)
	visited := make(map[string]bool)

	for pending.len() > 0 && len(visited) < c.maxPages {
		if err := ctx.Err(); err != nil {
			return report, &CrawlError{Message: "crawl interrupted", Cause: err}
		}

		p, _ := pending.pop()
		if visited[p] {
			continue
		}
		visited[p] = true
		report.Visited++

		result, links, err := c.visit(ctx, origin, p)
		if err != nil {
			report.Failed++
			observability.CrawlPages.WithLabelValues("failed").Inc()
			c.logger.Warn("failed to crawl page", "domain", report.Domain, "path", p, "error", err)
			continue
		}
		observability.CrawlPages.WithLabelValues("ok").Inc()

		report.Pages = append(report.Pages, *result)
		if c.onPage != nil {
			c.onPage(*result)
		}

		for _, link := range links {
			if !visited[link] {
				pending.push(link)
			}
		}
	}

	c.logger.Debug("crawl finished",
		"domain", report.Domain,
		"visited", report.Visited,
		"failed", report.Failed,
		"frontier_remaining", pending.len())

	return report, nil
}

// visit fetches one page and returns its CrawlResult and outgoing links.
func (c *Crawler) visit(ctx context.Context, origin *url.URL, p string) (*types.CrawlResult, []string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	pageURL := PageURL(origin, p)
	res, err := c.fetcher.Fetch(fetchCtx, pageURL)
	if err != nil {
		return nil, nil, err
	}

	doc, err := extract.Parse(res.HTML)
	if err != nil {
		return nil, nil, &CrawlError{Message: fmt.Sprintf("failed to parse %s", pageURL), Cause: err}
	}

	fragments := extract.Fragments(doc)
	result := &types.CrawlResult{
		Path:      p,
		Title:     extract.Title(doc, p),
		TextCount: extract.TextCount(fragments),
	}
	if c.detectLanguage {
		result.Language = extract.DetectLanguage(extract.PlainText(fragments))
	}

	base, _ := url.Parse(pageURL)
	return result, DiscoverLinks(doc, base), nil
}

// ParseSeed parses a seed URL. A missing scheme defaults to https.
func ParseSeed(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &CrawlError{Message: "seed URL is empty"}
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &CrawlError{Message: fmt.Sprintf("invalid seed URL %q", raw), Cause: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &CrawlError{Message: fmt.Sprintf("invalid seed URL %q (must have http(s) scheme and host)", raw)}
	}
	return u, nil
}

// Origin returns the scheme and host of u.
func Origin(u *url.URL) *url.URL {
	return &url.URL{Scheme: u.Scheme, Host: u.Host}
}

// Domain returns the site key for u: its lowercased host, including any port.
func Domain(u *url.URL) string {
	return strings.ToLower(u.Host)
}

// PageURL joins a site path onto origin.
func PageURL(origin *url.URL, p string) string {
	u := *origin
	u.Path = NormalizePath(p)
	return u.String()
}
