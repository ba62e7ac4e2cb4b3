package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/jonathan/sitetranslate/internal/db/sqlite"
	"github.com/jonathan/sitetranslate/internal/fetch"
	"github.com/jonathan/sitetranslate/internal/types"
)

type pageFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *pageFetcher) Fetch(_ context.Context, url string) (*fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, &fetch.Error{URL: url, Message: "HTTP 404", StatusCode: 404}
	}
	return &fetch.Result{URL: url, FinalURL: url, HTML: body, StatusCode: 200}, nil
}

type prefixTranslator struct{}

func (prefixTranslator) Translate(_ context.Context, text, target string) string {
	return "[" + target + "] " + text
}

func newTestService(t *testing.T, pages map[string]string) (*Service, *pageFetcher) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	fetcher := &pageFetcher{pages: pages}
	svc := NewService(store, prefixTranslator{},
		WithCrawlFetcher(fetcher),
		WithRenderFetcher(fetcher),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return svc, fetcher
}

var sitePages = map[string]string{
	"https://example.com/": `<html><head><title>Home</title></head><body>
<nav><a href="/about">About us</a></nav>
<h1>Welcome</h1><p>Hello world</p><a href="/contact">Contact</a></body></html>`,
	"https://example.com/about": `<html><head><title>About</title></head><body>
<nav><a href="/about">About us</a></nav><p>We build things</p></body></html>`,
}

func TestMap_ReturnsInventory(t *testing.T) {
	svc, _ := newTestService(t, sitePages)

	report, err := svc.Map(context.Background(), "https://example.com/", 0)
	require.NoError(t, err)
	assert.Equal(t, "example.com", report.Domain)
	require.Len(t, report.Pages, 2)
	assert.Equal(t, "/", report.Pages[0].Path)
	assert.Equal(t, "Home", report.Pages[0].Title)
	assert.Equal(t, 3, report.Visited)
	assert.Equal(t, 1, report.Failed)
}

func TestMap_RespectsMaxPages(t *testing.T) {
	svc, fetcher := newTestService(t, sitePages)

	report, err := svc.Map(context.Background(), "https://example.com/", 1)
	require.NoError(t, err)
	assert.Len(t, report.Pages, 1)
	assert.Len(t, fetcher.calls, 1)
}

func TestMap_InvalidURL(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Map(context.Background(), "ftp://example.com", 0)
	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "url", invalid.Field)
}

func TestIngest_StoresUntranslatedFragments(t *testing.T) {
	svc, _ := newTestService(t, sitePages)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, "https://example.com", []string{"/", "about", "/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/about"}, result.Pages)
	assert.Equal(t, 6, result.Inserted)
	assert.Zero(t, result.Failed)

	resp := result.Response()
	assert.Equal(t, "example.com", resp.Domain)
	assert.Equal(t, 6, resp.TranslationsCount)

	fragments, err := svc.Translations(ctx, "example.com", "/", "en")
	require.NoError(t, err)
	require.Len(t, fragments, 4)
	assert.Equal(t, "About us", fragments[0].OriginalText)
	assert.Equal(t, types.KindA, fragments[0].ElementKind)
	for _, f := range fragments {
		assert.Nil(t, f.TranslatedText)
		assert.Equal(t, "en", f.LanguageCode)
	}
}

func TestIngest_SecondRunSkipsIdentical(t *testing.T) {
	svc, _ := newTestService(t, sitePages)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, "https://example.com", []string{"/"})
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, "https://example.com", []string{"/"})
	require.NoError(t, err)

	assert.Equal(t, first.Site.ID, second.Site.ID)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, first.Inserted, second.Skipped)
}

func TestIngest_UpstreamFailure(t *testing.T) {
	svc, _ := newTestService(t, sitePages)

	_, err := svc.Ingest(context.Background(), "https://example.com", []string{"/missing"})
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, 404, upstream.StatusCode)
	assert.Contains(t, err.Error(), "https://example.com/missing")
}

func TestIngest_InvalidInput(t *testing.T) {
	svc, _ := newTestService(t, sitePages)

	_, err := svc.Ingest(context.Background(), "https://example.com", []string{" "})
	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "selectedPages", invalid.Field)
}

func TestTranslate_FillsEveryFragment(t *testing.T) {
	svc, _ := newTestService(t, sitePages)
	ctx := context.Background()

	ingested, err := svc.Ingest(ctx, "https://example.com", []string{"/"})
	require.NoError(t, err)

	var events []types.TranslateProgress
	site, result, err := svc.Translate(ctx, ingested.Site.ID, "es-ES", func(p types.TranslateProgress) {
		events = append(events, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "example.com", site.Domain)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 4, result.Translated)
	assert.Len(t, events, 4)

	fragments, err := svc.Translations(ctx, "example.com", "/", "es")
	require.NoError(t, err)
	require.Len(t, fragments, 4)
	assert.Equal(t, "[es] Welcome", *fragments[1].TranslatedText)
}

func TestTranslations_NormalizesLanguage(t *testing.T) {
	svc, _ := newTestService(t, sitePages)
	ctx := context.Background()

	ingested, err := svc.Ingest(ctx, "https://example.com", []string{"/"})
	require.NoError(t, err)
	_, _, err = svc.Translate(ctx, ingested.Site.ID, "es", nil)
	require.NoError(t, err)

	for _, lang := range []string{"es", "es-ES", "ES"} {
		fragments, err := svc.Translations(ctx, "example.com", "/", lang)
		require.NoError(t, err, lang)
		assert.Len(t, fragments, 4, lang)
	}

	_, err = svc.Translations(ctx, "example.com", "/", "auto")
	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "language", invalid.Field)
}

func TestTranslate_Errors(t *testing.T) {
	svc, _ := newTestService(t, sitePages)
	ctx := context.Background()

	_, _, err := svc.Translate(ctx, uuid.New(), "es", nil)
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, _, err = svc.Translate(ctx, uuid.New(), "auto", nil)
	var invalid *InvalidInputError
	assert.True(t, errors.As(err, &invalid))
}

func TestRender_UnknownDomainSkipsFetch(t *testing.T) {
	svc, fetcher := newTestService(t, sitePages)

	_, err := svc.Render(context.Background(), RenderRequest{Domain: "unknown.example", Path: "/", Language: "es", ProxyBase: "http://proxy"})
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Empty(t, fetcher.calls)
}

func TestRender_SubstitutesTranslations(t *testing.T) {
	svc, _ := newTestService(t, sitePages)
	ctx := context.Background()

	ingested, err := svc.Ingest(ctx, "https://example.com", []string{"/"})
	require.NoError(t, err)
	_, _, err = svc.Translate(ctx, ingested.Site.ID, "fr", nil)
	require.NoError(t, err)

	out, err := svc.Render(ctx, RenderRequest{Domain: "example.com", Path: "/", Language: "fr", ProxyBase: "http://proxy:8080"})
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>[fr] Welcome</h1>")
	assert.Contains(t, out, "<p>[fr] Hello world</p>")
	assert.Contains(t, out, `href="http://proxy:8080/view/example.com?lang=fr&amp;path=%2Fabout"`)
	assert.Contains(t, out, `<html lang="fr">`)
}

func TestRender_UsesTranslationsFromOtherPages(t *testing.T) {
	svc, _ := newTestService(t, sitePages)
	ctx := context.Background()

	ingested, err := svc.Ingest(ctx, "https://example.com", []string{"/"})
	require.NoError(t, err)
	_, _, err = svc.Translate(ctx, ingested.Site.ID, "fr", nil)
	require.NoError(t, err)

	out, err := svc.Render(ctx, RenderRequest{Domain: "example.com", Path: "/about", Language: "fr", ProxyBase: "http://proxy"})
	require.NoError(t, err)
	assert.Contains(t, out, "[fr] About us")
	assert.Contains(t, out, "<p>We build things</p>")
}

func TestRender_WithoutLanguageServesOriginal(t *testing.T) {
	svc, _ := newTestService(t, sitePages)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "https://example.com", []string{"/"})
	require.NoError(t, err)

	out, err := svc.Render(ctx, RenderRequest{Domain: "example.com", Path: "", ProxyBase: "http://proxy"})
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Welcome</h1>")
	assert.True(t, strings.Contains(out, `<base href="https://example.com/"/>`))
}

func TestRender_UpstreamFailure(t *testing.T) {
	svc, _ := newTestService(t, sitePages)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "https://example.com", []string{"/"})
	require.NoError(t, err)

	_, err = svc.Render(ctx, RenderRequest{Domain: "example.com", Path: "/gone?x=1", Language: "es", ProxyBase: "http://proxy"})
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "https://example.com/gone?x=1", upstream.URL)
}

func TestSiteLookups(t *testing.T) {
	svc, _ := newTestService(t, sitePages)
	ctx := context.Background()

	ingested, err := svc.Ingest(ctx, "https://example.com", []string{"/about"})
	require.NoError(t, err)

	sites, err := svc.Sites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 1)

	fragments, err := svc.SiteFragments(ctx, ingested.Site.ID)
	require.NoError(t, err)
	assert.Len(t, fragments, 2)
	assert.Equal(t, "example.com", fragments[0].Domain)

	_, err = svc.SiteFragments(ctx, uuid.New())
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, err = svc.Translations(ctx, "nope.example", "/", "en")
	assert.True(t, errors.As(err, &notFound))
}
