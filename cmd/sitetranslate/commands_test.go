package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/sitetranslate/internal/config"
	"github.com/jonathan/sitetranslate/internal/db/sqlite"
	"github.com/jonathan/sitetranslate/internal/translation"
	"github.com/jonathan/sitetranslate/internal/types"
)

// isolateEnv points the CLI at a fresh sqlite file and clears variables that
// would switch drivers or backends.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "REDIS_ADDR", "TRANSLATE_API_KEY", "GEMINI_API_KEY", "PORT", "LOG_FILE", "PUBLIC_BASE_URL"} {
		t.Setenv(key, "")
	}
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("DATABASE_DRIVER", config.DriverSQLite)
	t.Setenv("SQLITE_PATH", dbPath)
	t.Setenv("UPSTREAM_SCHEME", "http")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("TRANSLATION_PROVIDER", config.ProviderNone)
	return dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Home</title></head><body><h1>Welcome</h1><p>Hello world</p><a href="/about">About</a></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>About</title></head><body><p>We build things</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newLibreTranslate(t *testing.T, translated string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"translatedText":%q}`, translated)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMapCommand_Formats(t *testing.T) {
	isolateEnv(t)
	upstream := newUpstream(t)
	host := strings.TrimPrefix(upstream.URL, "http://")

	out, err := execute(t, "map", upstream.URL+"/", "--format", "json")
	require.NoError(t, err)
	var report types.CrawlReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, host, report.Domain)
	require.Len(t, report.Pages, 2)
	assert.Equal(t, "/", report.Pages[0].Path)
	assert.Equal(t, "/about", report.Pages[1].Path)

	out, err = execute(t, "map", upstream.URL+"/", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Site map: "+host)

	out, err = execute(t, "map", upstream.URL+"/", "--max-pages", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Home")
	assert.NotContains(t, out, "/about")
}

func TestMapCommand_Errors(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "map", "https://example.com/", "--format", "yaml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "map")
	assert.Error(t, err)
}

func TestIngestAndTranslateCommands(t *testing.T) {
	dbPath := isolateEnv(t)
	upstream := newUpstream(t)
	libre := newLibreTranslate(t, "Hola")
	t.Setenv("TRANSLATION_PROVIDER", config.ProviderLibreTranslate)
	t.Setenv("TRANSLATE_API_URL", libre.URL)
	host := strings.TrimPrefix(upstream.URL, "http://")

	out, err := execute(t, "ingest", upstream.URL+"/", "--pages", "/,/about")
	require.NoError(t, err)
	assert.Contains(t, out, host)

	out, err = execute(t, "translate", "--site", host, "--lang", "es")
	require.NoError(t, err)
	assert.Contains(t, out, "TRANSLATED")
	assert.Contains(t, out, "4/4")

	store, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	site, err := store.FindSiteByDomain(context.Background(), host)
	require.NoError(t, err)
	require.NotNil(t, site)

	about, err := store.FindByPathAndLanguage(context.Background(), site.ID, "/about", "es")
	require.NoError(t, err)
	require.Len(t, about, 1)
	require.NotNil(t, about[0].TranslatedText)
	assert.Equal(t, "Hola", *about[0].TranslatedText)

	// By id, with nothing left to do.
	out, err = execute(t, "translate", "--site", site.ID.String(), "--lang", "es")
	require.NoError(t, err)
	assert.Contains(t, out, "0/0")
}

func TestTranslateCommand_Errors(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "translate", "--site", "example.com")
	assert.ErrorContains(t, err, "lang")

	_, err = execute(t, "translate", "--site", "unknown.example.org", "--lang", "es")
	assert.ErrorContains(t, err, "not found")
}

func TestIngestCommand_UpstreamFailure(t *testing.T) {
	isolateEnv(t)
	upstream := newUpstream(t)

	_, err := execute(t, "ingest", upstream.URL+"/", "--pages", "/missing")
	assert.ErrorContains(t, err, "404")
}

func TestMigrateCommand(t *testing.T) {
	dbPath := isolateEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema applied")
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestConfigFlag(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "migrate")
	assert.ErrorContains(t, err, "config file not found")

	path := filepath.Join(t.TempDir(), "sitetranslate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl:\n  max_pages: 0\n"), 0o600))
	_, err = execute(t, "--config", path, "migrate")
	assert.ErrorContains(t, err, "max_pages")
}

func TestNewBackend(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Translation.Provider = config.ProviderNone
	backend, closeFn, err := newBackend(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()
	assert.Equal(t, "identity", backend.Name())

	cfg.Translation.Provider = config.ProviderLibreTranslate
	backend, _, err = newBackend(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "libretranslate", backend.Name())

	cfg.Translation.Provider = config.ProviderGemini
	cfg.Translation.GeminiAPIKey = ""
	_, _, err = newBackend(ctx, cfg)
	assert.Error(t, err)

	cfg.Translation.Provider = "deepl"
	_, _, err = newBackend(ctx, cfg)
	assert.Error(t, err)
}

func TestNewCache_RedisFallback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := config.Default()
	cfg.Translation.Cache.Backend = config.CacheRedis
	cfg.Translation.Cache.RedisAddr = "127.0.0.1:1"

	cache, closeFn := newCache(ctx, cfg, discardLogger())
	defer closeFn()
	_, ok := cache.(*translation.MemoryCache)
	assert.True(t, ok)

	cfg.Translation.Cache.Backend = config.CacheNone
	cache, _ = newCache(ctx, cfg, discardLogger())
	assert.Nil(t, cache)
}
