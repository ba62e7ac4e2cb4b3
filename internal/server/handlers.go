package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/sitetranslate/internal/pipeline"
	"github.com/jonathan/sitetranslate/internal/translation"
	"github.com/jonathan/sitetranslate/internal/types"
)

// TranslateWebsiteResponse is returned by POST /api/translate-website.
type TranslateWebsiteResponse struct {
	Message        string    `json:"message"`
	WebsiteID      uuid.UUID `json:"websiteId"`
	Domain         string    `json:"domain"`
	TargetLanguage string    `json:"targetLanguage"`
	Total          int       `json:"total"`
	Translated     int       `json:"translated"`
	Failed         int       `json:"failed"`
}

// GetTranslationResponse is returned by GET /api/get-translation.
type GetTranslationResponse struct {
	Translations []types.Fragment `json:"translations"`
}

// decodeJSON reads a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &pipeline.InvalidInputError{Field: "body", Message: err.Error()}
	}
	return nil
}

// handleMapWebsite crawls a site and returns its page inventory.
func (s *Server) handleMapWebsite(w http.ResponseWriter, r *http.Request) {
	var req types.MapWebsiteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, newValidationError(err))
		return
	}

	report, err := s.svc.Map(r.Context(), req.URL, req.MaxPages)
	if err != nil {
		s.writeError(w, err)
		return
	}

	pages := report.Pages
	if pages == nil {
		pages = []types.CrawlResult{}
	}
	s.jsonResponse(w, http.StatusOK, types.MapWebsiteResponse{
		Domain:     report.Domain,
		Pages:      pages,
		TotalPages: len(pages),
	})
}

// handleFetchWebsite stores the fragments of the selected pages.
func (s *Server) handleFetchWebsite(w http.ResponseWriter, r *http.Request) {
	var req types.FetchWebsiteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, newValidationError(err))
		return
	}

	result, err := s.svc.Ingest(r.Context(), req.URL, req.SelectedPages)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result.Response())
}

// parseTranslateRequest decodes and validates a translate request.
func (s *Server) parseTranslateRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, error) {
	var req types.TranslateWebsiteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return uuid.Nil, "", err
	}
	if err := req.Validate(); err != nil {
		return uuid.Nil, "", newValidationError(err)
	}
	id, err := uuid.Parse(req.WebsiteID)
	if err != nil {
		return uuid.Nil, "", &pipeline.InvalidInputError{Field: "websiteId", Message: err.Error()}
	}
	return id, req.TargetLanguage, nil
}

func translateResponse(site *types.Site, target string, res translation.FillResult) TranslateWebsiteResponse {
	return TranslateWebsiteResponse{
		Message:        fmt.Sprintf("Translated %d of %d fragments to %s", res.Translated, res.Total, target),
		WebsiteID:      site.ID,
		Domain:         site.Domain,
		TargetLanguage: target,
		Total:          res.Total,
		Translated:     res.Translated,
		Failed:         res.Failed,
	}
}

// handleTranslateWebsite fills every untranslated fragment of a site.
func (s *Server) handleTranslateWebsite(w http.ResponseWriter, r *http.Request) {
	id, target, err := s.parseTranslateRequest(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	site, res, err := s.svc.Translate(r.Context(), id, target, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, translateResponse(site, target, res))
}

// handleTranslateWebsiteStream is handleTranslateWebsite with SSE progress.
func (s *Server) handleTranslateWebsiteStream(w http.ResponseWriter, r *http.Request) {
	id, target, err := s.parseTranslateRequest(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	progress := func(p types.TranslateProgress) {
		if err := sse.WriteEvent("progress", p); err != nil {
			s.logger.Debug("Progress event not delivered", "error", err)
		}
	}

	site, res, err := s.svc.Translate(r.Context(), id, target, progress)
	if err != nil {
		sse.WriteError(err.Error())
		return
	}
	sse.WriteComplete(translateResponse(site, target, res))
}

// handleGetTranslation returns the stored translations for one page.
func (s *Server) handleGetTranslation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	domain := strings.TrimSpace(q.Get("domain"))
	language := strings.TrimSpace(q.Get("language"))
	path := q.Get("path")

	var missing []FieldError
	if domain == "" {
		missing = append(missing, FieldError{Field: "domain", Message: "is required"})
	}
	if language == "" {
		missing = append(missing, FieldError{Field: "language", Message: "is required"})
	}
	if len(missing) > 0 {
		s.writeError(w, &ValidationError{Details: missing})
		return
	}
	if path == "" {
		path = "/"
	}

	fragments, err := s.svc.Translations(r.Context(), domain, path, language)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if fragments == nil {
		fragments = []types.Fragment{}
	}
	s.jsonResponse(w, http.StatusOK, GetTranslationResponse{Translations: fragments})
}

// handleListWebsites returns every site, newest first.
func (s *Server) handleListWebsites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.svc.Sites(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sites == nil {
		sites = []types.Site{}
	}
	s.jsonResponse(w, http.StatusOK, sites)
}

func (s *Server) websiteID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("websiteId"))
	if err != nil {
		return uuid.Nil, &pipeline.InvalidInputError{Field: "websiteId", Message: "must be a valid UUID"}
	}
	return id, nil
}

// handleGetWebsite returns one site.
func (s *Server) handleGetWebsite(w http.ResponseWriter, r *http.Request) {
	id, err := s.websiteID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	site, err := s.svc.Site(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, site)
}

// handleListTranslations returns every fragment of a site, newest first.
func (s *Server) handleListTranslations(w http.ResponseWriter, r *http.Request) {
	id, err := s.websiteID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	fragments, err := s.svc.SiteFragments(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if fragments == nil {
		fragments = []types.SiteFragment{}
	}
	s.jsonResponse(w, http.StatusOK, fragments)
}

// handleView serves an upstream page rewritten with stored translations.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	path := q.Get("path")
	if suffix := r.PathValue("path"); suffix != "" {
		path = "/" + suffix
		// The suffix form carries the upstream query alongside lang.
		upstream := url.Values{}
		for key, values := range q {
			if key != "lang" && key != "path" {
				upstream[key] = values
			}
		}
		if len(upstream) > 0 {
			path += "?" + upstream.Encode()
		}
	}
	if path == "" {
		path = "/"
	}

	html, err := s.svc.Render(r.Context(), pipeline.RenderRequest{
		Domain:    r.PathValue("domain"),
		Path:      path,
		Language:  q.Get("lang"),
		ProxyBase: s.proxyBase(r),
	})
	if err != nil {
		status := viewStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("Render failed", "domain", r.PathValue("domain"), "path", path, "error", err)
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(html)); err != nil {
		s.logger.Debug("Writing rendered page failed", "error", err)
	}
}

// proxyBase is the configured public URL, or the origin the request came in on.
func (s *Server) proxyBase(r *http.Request) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
