package crawling

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/sitetranslate/internal/fetch"
	"github.com/jonathan/sitetranslate/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graphFetcher serves pages whose bodies link to the given paths.
type graphFetcher struct {
	mu      sync.Mutex
	graph   map[string][]string
	failing map[string]bool
	calls   []string
}

func (g *graphFetcher) Fetch(_ context.Context, urlStr string) (*fetch.Result, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.calls = append(g.calls, u.Path)
	g.mu.Unlock()

	if g.failing[u.Path] {
		return nil, &fetch.Error{URL: urlStr, Message: "HTTP status 500", StatusCode: 500}
	}
	links, ok := g.graph[u.Path]
	if !ok {
		return nil, &fetch.Error{URL: urlStr, Message: "HTTP status 404", StatusCode: 404}
	}

	var sb strings.Builder
	sb.WriteString("<html><head><title>Page " + u.Path + "</title></head><body><h1>Heading</h1>")
	for _, l := range links {
		sb.WriteString(`<a href="` + l + `">link</a>`)
	}
	sb.WriteString("</body></html>")
	return &fetch.Result{URL: urlStr, HTML: sb.String(), StatusCode: 200}, nil
}

func paths(report *types.CrawlReport) []string {
	out := make([]string, len(report.Pages))
	for i, p := range report.Pages {
		out[i] = p.Path
	}
	return out
}

func TestCrawl_SmallGraphTerminatesBeforeCap(t *testing.T) {
	g := &graphFetcher{graph: map[string][]string{
		"/":  {"/a", "/b"},
		"/a": {},
		"/b": {"/a"},
	}}

	c := NewCrawler(g, WithMaxPages(20), WithLanguageDetection(false))
	report, err := c.Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)

	assert.Equal(t, "example.com", report.Domain)
	assert.Equal(t, 3, report.Visited)
	assert.Equal(t, []string{"/", "/a", "/b"}, paths(report))
	assert.Equal(t, []string{"/", "/a", "/b"}, g.calls)
}

func TestCrawl_CapLimitsVisits(t *testing.T) {
	graph := map[string][]string{}
	for i := 0; i < 50; i++ {
		graph[fmt.Sprintf("/p%d", i)] = []string{fmt.Sprintf("/p%d", i+1), "/p0"}
	}
	graph["/"] = []string{"/p0"}

	g := &graphFetcher{graph: graph}
	c := NewCrawler(g, WithMaxPages(7), WithLanguageDetection(false))
	report, err := c.Crawl(context.Background(), "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, 7, report.Visited)
	assert.Len(t, report.Pages, 7)

	seen := map[string]bool{}
	for _, p := range g.calls {
		assert.False(t, seen[p], "path %s fetched twice", p)
		seen[p] = true
	}
}

func TestCrawl_DefaultCap(t *testing.T) {
	graph := map[string][]string{}
	links := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		p := fmt.Sprintf("/page-%d", i)
		links = append(links, p)
		graph[p] = nil
	}
	graph["/"] = links

	g := &graphFetcher{graph: graph}
	report, err := NewCrawler(g, WithLanguageDetection(false)).Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPages, report.Visited)
}

func TestCrawl_BreadthFirstOrder(t *testing.T) {
	g := &graphFetcher{graph: map[string][]string{
		"/":    {"/a", "/b"},
		"/a":   {"/a/1"},
		"/b":   {"/b/1"},
		"/a/1": {},
		"/b/1": {},
	}}

	report, err := NewCrawler(g, WithLanguageDetection(false)).Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/a", "/b", "/a/1", "/b/1"}, paths(report))
}

func TestCrawl_FailedPageCountsAsVisited(t *testing.T) {
	g := &graphFetcher{
		graph: map[string][]string{
			"/":       {"/broken", "/ok"},
			"/broken": {},
			"/ok":     {"/broken"},
		},
		failing: map[string]bool{"/broken": true},
	}

	report, err := NewCrawler(g, WithLanguageDetection(false)).Crawl(context.Background(), "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Visited)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"/", "/ok"}, paths(report))
	assert.Equal(t, 1, strings.Count(strings.Join(g.calls, ","), "/broken"))
}

func TestCrawl_ResultFields(t *testing.T) {
	g := &graphFetcher{graph: map[string][]string{"/": {}}}

	var callbacks []types.CrawlResult
	c := NewCrawler(g, WithLanguageDetection(false), WithPageCallback(func(r types.CrawlResult) {
		callbacks = append(callbacks, r)
	}))
	report, err := c.Crawl(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Len(t, report.Pages, 1)

	page := report.Pages[0]
	assert.Equal(t, "/", page.Path)
	assert.Equal(t, "Page /", page.Title)
	assert.Equal(t, len("Heading"), page.TextCount)
	assert.Equal(t, report.Pages, callbacks)
}

func TestCrawl_InvalidSeed(t *testing.T) {
	c := NewCrawler(&graphFetcher{})
	_, err := c.Crawl(context.Background(), "ftp://example.com")
	require.Error(t, err)

	var crawlErr *CrawlError
	assert.ErrorAs(t, err, &crawlErr)
}

func TestCrawl_CancelledContext(t *testing.T) {
	g := &graphFetcher{graph: map[string][]string{"/": {}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewCrawler(g).Crawl(ctx, "https://example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, report.Pages)
}

func TestCrawl_AgainstHTTPServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><head><title>Home</title></head><body>
			<p>The quick brown fox jumps over the lazy dog while the children watch from the garden.</p>
			<a href="/slow">slow</a><a href="./about">about</a><a href="mailto:x@example.com">mail</a>
		</body></html>`))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h2>About</h2></body></html>`))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewCrawler(fetch.NewClient(nil), WithFetchTimeout(100*time.Millisecond))
	report, err := c.Crawl(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Visited)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"/", "/about"}, paths(report))
	assert.Equal(t, "Home", report.Pages[0].Title)
	assert.Equal(t, "en", report.Pages[0].Language)
	assert.Equal(t, "/about", report.Pages[1].Title)
}

func TestParseSeed(t *testing.T) {
	u, err := ParseSeed("example.com/docs")
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "example.com", Domain(u))
	assert.Equal(t, "https://example.com", Origin(u).String())

	u, err = ParseSeed("http://Example.com:8080")
	require.NoError(t, err)
	assert.Equal(t, "example.com:8080", Domain(u))

	_, err = ParseSeed("  ")
	assert.Error(t, err)
}

func TestPageURL(t *testing.T) {
	origin := &url.URL{Scheme: "https", Host: "example.com"}
	assert.Equal(t, "https://example.com/", PageURL(origin, ""))
	assert.Equal(t, "https://example.com/a/b", PageURL(origin, "a/b"))
	assert.Equal(t, "https://example.com/hello%20world", PageURL(origin, "/hello world"))
}
