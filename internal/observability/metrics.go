package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CrawlPages counts crawler page visits by outcome.
	CrawlPages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitetranslate_crawl_pages_total",
			Help: "Pages visited by the crawler, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	// FragmentsStored counts extracted fragments by storage outcome.
	FragmentsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitetranslate_fragments_stored_total",
			Help: "Fragments handled during ingestion, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	// Translations counts backend calls by backend and outcome.
	Translations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitetranslate_translations_total",
			Help: "Translation backend calls, labeled by backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)
	// TranslationDuration times backend calls.
	TranslationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitetranslate_translation_duration_seconds",
			Help:    "Duration of translation backend calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
	// RenderDuration times /view renders.
	RenderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitetranslate_render_duration_seconds",
			Help:    "Duration of proxied page renders in seconds, labeled by outcome.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	// HTTPRequestDuration times API requests by route pattern and status.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitetranslate_http_request_duration_seconds",
			Help:    "Duration of API requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(CrawlPages)
	prometheus.MustRegister(FragmentsStored)
	prometheus.MustRegister(Translations)
	prometheus.MustRegister(TranslationDuration)
	prometheus.MustRegister(RenderDuration)
	prometheus.MustRegister(HTTPRequestDuration)
}

// MetricsHandler serves the default prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
