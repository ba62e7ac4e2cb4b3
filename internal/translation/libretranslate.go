package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/sitetranslate/internal/schemas"
)

const maxResponseBytes = 1 << 20

// LibreTranslate calls a LibreTranslate compatible HTTP API.
type LibreTranslate struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// LibreTranslateOption configures a LibreTranslate backend.
type LibreTranslateOption func(*LibreTranslate)

// WithAPIKey sets the api_key sent with every request.
func WithAPIKey(key string) LibreTranslateOption {
	return func(l *LibreTranslate) {
		l.apiKey = key
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) LibreTranslateOption {
	return func(l *LibreTranslate) {
		l.httpClient = c
	}
}

// WithRequestsPerSecond paces outgoing requests. Zero disables pacing.
func WithRequestsPerSecond(rps float64) LibreTranslateOption {
	return func(l *LibreTranslate) {
		if rps <= 0 {
			l.limiter = nil
			return
		}
		l.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewLibreTranslate creates a backend for the API rooted at baseURL.
func NewLibreTranslate(baseURL string, opts ...LibreTranslateOption) *LibreTranslate {
	l := &LibreTranslate{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Name implements Backend.
func (l *LibreTranslate) Name() string { return "libretranslate" }

// Translate implements Backend.
func (l *LibreTranslate) Translate(ctx context.Context, text, target string) (string, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", l.fail("rate limiter wait", 0, err)
		}
	}

	payload, err := json.Marshal(libreRequest{
		Q:      text,
		Source: "auto",
		Target: target,
		Format: "text",
		APIKey: l.apiKey,
	})
	if err != nil {
		return "", l.fail("failed to encode request", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/translate", bytes.NewReader(payload))
	if err != nil {
		return "", l.fail("failed to build request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", l.fail("request failed", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", l.fail("failed to read response", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", l.fail(fmt.Sprintf("unexpected response %q", snippet(body)), resp.StatusCode, nil)
	}

	if err := schemas.Validate(schemas.LibreTranslateResponse, body); err != nil {
		return "", l.fail("malformed response", resp.StatusCode, err)
	}
	var out libreResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", l.fail("malformed response", resp.StatusCode, err)
	}
	return out.TranslatedText, nil
}

func (l *LibreTranslate) fail(msg string, status int, cause error) error {
	return &BackendError{Backend: l.Name(), Message: msg, StatusCode: status, Cause: cause}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
