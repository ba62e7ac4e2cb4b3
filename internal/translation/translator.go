package translation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/sitetranslate/internal/observability"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 15 * time.Second

// Translator is the client used by the rest of the system. It never fails:
// when the backend errors, times out or returns nothing, the input text is
// returned unchanged.
type Translator struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(t *Translator) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithLogger sets the logger used for backend failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		t.logger = logger
	}
}

// NewTranslator creates a Translator over backend.
func NewTranslator(backend Backend, opts ...Option) *Translator {
	if backend == nil {
		backend = Identity{}
	}
	t := &Translator{
		backend: backend,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Backend returns the name of the underlying backend.
func (t *Translator) Backend() string { return t.backend.Name() }

// Translate returns text in the target language, or text itself on failure.
func (t *Translator) Translate(ctx context.Context, text, target string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	name := t.backend.Name()
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	translated, err := t.backend.Translate(ctx, text, target)
	observability.TranslationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.Translations.WithLabelValues(name, "failed").Inc()
		t.logger.Warn("translation failed, keeping original text",
			"backend", name,
			"target", target,
			"error", err,
		)
		return text
	}
	if strings.TrimSpace(translated) == "" {
		observability.Translations.WithLabelValues(name, "empty").Inc()
		t.logger.Warn("translation backend returned empty text, keeping original text",
			"backend", name,
			"target", target,
		)
		return text
	}

	observability.Translations.WithLabelValues(name, "ok").Inc()
	return translated
}
