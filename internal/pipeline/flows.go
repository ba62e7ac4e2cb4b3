package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/sitetranslate/internal/crawling"
	"github.com/jonathan/sitetranslate/internal/extract"
	"github.com/jonathan/sitetranslate/internal/observability"
	"github.com/jonathan/sitetranslate/internal/rewriting"
	"github.com/jonathan/sitetranslate/internal/translation"
	"github.com/jonathan/sitetranslate/internal/types"
)

// Map crawls the site at rawURL and returns its page inventory.
// maxPages <= 0 uses the service default.
func (s *Service) Map(ctx context.Context, rawURL string, maxPages int) (*types.CrawlReport, error) {
	if _, err := crawling.ParseSeed(rawURL); err != nil {
		return nil, &InvalidInputError{Field: "url", Message: err.Error()}
	}
	if maxPages <= 0 {
		maxPages = s.maxPages
	}

	crawler := crawling.NewCrawler(s.crawlFetcher,
		crawling.WithMaxPages(maxPages),
		crawling.WithFetchTimeout(s.fetchTimeout),
		crawling.WithLanguageDetection(true),
		crawling.WithLogger(s.logger),
	)
	return crawler.Crawl(ctx, rawURL)
}

// IngestResult summarizes a fetch-website run.
type IngestResult struct {
	Site     *types.Site
	Pages    []string
	Inserted int
	Skipped  int
	Failed   int
}

// Response converts the result to the API response body.
func (r *IngestResult) Response() *types.FetchWebsiteResponse {
	return &types.FetchWebsiteResponse{
		Message:           fmt.Sprintf("Stored %d fragments from %d pages", r.Inserted, len(r.Pages)),
		WebsiteID:         r.Site.ID,
		Domain:            r.Site.Domain,
		TranslationsCount: r.Inserted,
	}
}

// Ingest fetches each selected page of the site at rawURL and stores its
// fragments untranslated in the source language. An unreachable page aborts
// the run; a fragment that fails to store is logged and skipped.
func (s *Service) Ingest(ctx context.Context, rawURL string, selectedPages []string) (*IngestResult, error) {
	seed, err := crawling.ParseSeed(rawURL)
	if err != nil {
		return nil, &InvalidInputError{Field: "url", Message: err.Error()}
	}
	pages := uniquePaths(selectedPages)
	if len(pages) == 0 {
		return nil, &InvalidInputError{Field: "selectedPages", Message: "at least one page is required"}
	}

	site, err := s.repo.FindOrCreateSite(ctx, crawling.Domain(seed))
	if err != nil {
		return nil, &PersistenceError{Op: "create site", Cause: err}
	}

	origin := crawling.Origin(seed)
	result := &IngestResult{Site: site, Pages: pages}
	for _, p := range pages {
		pageURL := crawling.PageURL(origin, p)
		fragments, err := s.fetchFragments(ctx, pageURL)
		if err != nil {
			return result, err
		}

		for _, f := range fragments {
			inserted, err := s.repo.InsertFragment(ctx, types.NewFragment{
				SiteID:       site.ID,
				OriginalText: f.Text,
				LanguageCode: types.DefaultSourceLanguage,
				Path:         p,
				ElementKind:  f.Kind,
			})
			switch {
			case err != nil:
				result.Failed++
				observability.FragmentsStored.WithLabelValues("failed").Inc()
				s.logger.Error("failed to store fragment",
					"domain", site.Domain,
					"path", p,
					"kind", f.Kind,
					"error", err,
				)
			case inserted:
				result.Inserted++
				observability.FragmentsStored.WithLabelValues("inserted").Inc()
			default:
				result.Skipped++
				observability.FragmentsStored.WithLabelValues("duplicate").Inc()
			}
		}
		s.logger.Info("ingested page", "domain", site.Domain, "path", p, "fragments", len(fragments))
	}
	return result, nil
}

func (s *Service) fetchFragments(ctx context.Context, pageURL string) ([]types.ExtractedFragment, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	res, err := s.crawlFetcher.Fetch(fetchCtx, pageURL)
	if err != nil {
		return nil, upstreamError(pageURL, err)
	}
	doc, err := extract.Parse(res.HTML)
	if err != nil {
		return nil, &UpstreamError{URL: pageURL, Cause: err}
	}
	return extract.Fragments(doc), nil
}

func uniquePaths(pages []string) []string {
	seen := make(map[string]bool, len(pages))
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		p = crawling.NormalizePath(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Translate fills in translations for every untranslated fragment of a site.
func (s *Service) Translate(ctx context.Context, websiteID uuid.UUID, targetLanguage string,
	progress func(types.TranslateProgress)) (*types.Site, translation.FillResult, error) {
	target, err := translation.NormalizeLanguage(targetLanguage)
	if err != nil {
		return nil, translation.FillResult{}, &InvalidInputError{Field: "targetLanguage", Message: err.Error()}
	}

	site, err := s.Site(ctx, websiteID)
	if err != nil {
		return nil, translation.FillResult{}, err
	}

	result, err := translation.Fill(ctx, s.repo, s.translator, site.ID, target, progress, s.logger)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return site, result, err
		}
		return site, result, &PersistenceError{Op: "load untranslated fragments", Cause: err}
	}
	s.logger.Info("translated site",
		"domain", site.Domain,
		"target", target,
		"total", result.Total,
		"failed", result.Failed,
	)
	return site, result, nil
}

// Site returns a site by id.
func (s *Service) Site(ctx context.Context, id uuid.UUID) (*types.Site, error) {
	site, err := s.repo.FindSiteByID(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "load site", Cause: err}
	}
	if site == nil {
		return nil, &NotFoundError{Resource: "website", Key: id.String()}
	}
	return site, nil
}

// SiteByDomain returns a site by domain.
func (s *Service) SiteByDomain(ctx context.Context, domain string) (*types.Site, error) {
	site, err := s.repo.FindSiteByDomain(ctx, domain)
	if err != nil {
		return nil, &PersistenceError{Op: "load site", Cause: err}
	}
	if site == nil {
		return nil, &NotFoundError{Resource: "website", Key: domain}
	}
	return site, nil
}

// Sites lists all sites, newest first.
func (s *Service) Sites(ctx context.Context) ([]types.Site, error) {
	sites, err := s.repo.ListSites(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list websites", Cause: err}
	}
	return sites, nil
}

// SiteFragments lists every fragment of a site, newest first.
func (s *Service) SiteFragments(ctx context.Context, id uuid.UUID) ([]types.SiteFragment, error) {
	site, err := s.Site(ctx, id)
	if err != nil {
		return nil, err
	}
	fragments, err := s.repo.ListFragmentsBySite(ctx, site.ID)
	if err != nil {
		return nil, &PersistenceError{Op: "list translations", Cause: err}
	}
	return fragments, nil
}

// Translations returns the fragments stored for one page in one language.
func (s *Service) Translations(ctx context.Context, domain, path, language string) ([]types.Fragment, error) {
	lang, err := translation.NormalizeLanguage(language)
	if err != nil {
		return nil, &InvalidInputError{Field: "language", Message: err.Error()}
	}
	site, err := s.SiteByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	fragments, err := s.repo.FindByPathAndLanguage(ctx, site.ID, crawling.NormalizePath(path), lang)
	if err != nil {
		return nil, &PersistenceError{Op: "load translations", Cause: err}
	}
	return fragments, nil
}

// RenderRequest identifies a page to serve through the proxy.
type RenderRequest struct {
	Domain string
	// Path is the site-relative path, optionally with a query string.
	Path      string
	Language  string
	ProxyBase string
}

// Render fetches a stored site's page and returns it rewritten with the
// translations on record. Unknown domains fail before any fetch.
func (s *Service) Render(ctx context.Context, req RenderRequest) (string, error) {
	start := time.Now()
	html, err := s.render(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.RenderDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return html, err
}

func (s *Service) render(ctx context.Context, req RenderRequest) (string, error) {
	site, err := s.SiteByDomain(ctx, req.Domain)
	if err != nil {
		return "", err
	}

	lang := ""
	if strings.TrimSpace(req.Language) != "" {
		if lang, err = translation.NormalizeLanguage(req.Language); err != nil {
			return "", &InvalidInputError{Field: "lang", Message: err.Error()}
		}
	}

	page, err := upstreamURL(s.upstreamScheme, site.Domain, req.Path)
	if err != nil {
		return "", &InvalidInputError{Field: "path", Message: err.Error()}
	}
	pageURL := page.String()
	pagePath := page.Path

	var (
		body      string
		fragments []types.Fragment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetchCtx, cancel := context.WithTimeout(gctx, s.renderTimeout)
		defer cancel()
		res, err := s.renderFetcher.Fetch(fetchCtx, pageURL)
		if err != nil {
			return upstreamError(pageURL, err)
		}
		body = res.HTML
		if final, err := url.Parse(res.FinalURL); err == nil && final.Host != "" {
			page = final
		}
		return nil
	})
	if lang != "" {
		g.Go(func() error {
			var err error
			fragments, err = s.repo.FindByPathAndLanguage(gctx, site.ID, pagePath, lang)
			if err != nil {
				return &PersistenceError{Op: "load translations", Cause: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	subs := rewriting.SubstitutionsFrom(fragments)
	if lang != "" {
		subs = append(subs, s.sharedSubstitutions(ctx, site.Domain, body, lang, subs)...)
	}

	return rewriting.Rewrite(body, rewriting.Options{
		Page:          page,
		Domain:        site.Domain,
		ProxyBase:     req.ProxyBase,
		Language:      lang,
		Substitutions: subs,
	})
}

// sharedSubstitutions resolves page text that has no translation recorded
// for this path but was translated elsewhere on the site, such as shared
// navigation and footers. Lookup failures are logged and skipped.
func (s *Service) sharedSubstitutions(ctx context.Context, domain, body, lang string, known []rewriting.Substitution) []rewriting.Substitution {
	doc, err := extract.Parse(body)
	if err != nil {
		return nil
	}

	covered := make(map[rewriting.Substitution]bool, len(known))
	for _, sub := range known {
		covered[rewriting.Substitution{Original: sub.Original, Kind: sub.Kind}] = true
	}

	var extra []rewriting.Substitution
	for _, f := range extract.Fragments(doc) {
		key := rewriting.Substitution{Original: f.Text, Kind: f.Kind}
		if covered[key] {
			continue
		}
		covered[key] = true

		translated, err := s.repo.FindTranslationByText(ctx, domain, f.Text, lang)
		if err != nil {
			s.logger.Warn("failed to look up translation", "domain", domain, "error", err)
			continue
		}
		if translated == nil || *translated == f.Text {
			continue
		}
		extra = append(extra, rewriting.Substitution{Original: f.Text, Translated: *translated, Kind: f.Kind})
	}
	return extra
}

// upstreamURL builds the upstream page URL for a site-relative path that
// may carry a query string.
func upstreamURL(scheme, domain, p string) (*url.URL, error) {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u, err := url.Parse(scheme + "://" + domain + p)
	if err != nil {
		return nil, err
	}
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}
