package db

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/sitetranslate/internal/types"
)

// ErrFragmentNotFound is returned when an update targets a missing fragment.
var ErrFragmentNotFound = errors.New("fragment not found")

// Repository stores sites and their text fragments.
//
// Lookups that return nothing report (nil, nil). Fragments are not unique
// by (site, text, language, path); readers that need one record per text
// keep the oldest.
type Repository interface {
	// FindOrCreateSite returns the site for domain, creating it atomically if absent.
	FindOrCreateSite(ctx context.Context, domain string) (*types.Site, error)
	FindSiteByDomain(ctx context.Context, domain string) (*types.Site, error)
	FindSiteByID(ctx context.Context, id uuid.UUID) (*types.Site, error)
	// ListSites returns all sites, newest first.
	ListSites(ctx context.Context) ([]types.Site, error)

	// InsertFragment appends a fragment unless an identical record (site,
	// text, language, path, kind) already exists. It never overwrites.
	InsertFragment(ctx context.Context, f types.NewFragment) (bool, error)
	// FindUntranslated returns the site's fragments without a translation, oldest first.
	FindUntranslated(ctx context.Context, siteID uuid.UUID) ([]types.Fragment, error)
	// UpdateTranslation sets the translation and language of one fragment.
	UpdateTranslation(ctx context.Context, fragmentID uuid.UUID, translatedText, languageCode string) error
	// FindByPathAndLanguage returns one fragment per (text, kind) for a page, oldest first.
	FindByPathAndLanguage(ctx context.Context, siteID uuid.UUID, path, languageCode string) ([]types.Fragment, error)
	// FindTranslationByText returns the first recorded translation of text, or nil.
	FindTranslationByText(ctx context.Context, domain, originalText, languageCode string) (*string, error)
	// ListFragmentsBySite returns all of a site's fragments joined with its domain, newest first.
	ListFragmentsBySite(ctx context.Context, siteID uuid.UUID) ([]types.SiteFragment, error)

	Close()
}

// NormalizeDomain lowercases a host and strips any scheme or trailing slash.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	if i := strings.Index(domain, "/"); i >= 0 {
		domain = domain[:i]
	}
	return domain
}

// DedupeFragments keeps the first fragment for each (text, kind) pair.
func DedupeFragments(fragments []types.Fragment) []types.Fragment {
	type key struct {
		text string
		kind types.ElementKind
	}
	seen := make(map[key]bool, len(fragments))
	out := make([]types.Fragment, 0, len(fragments))
	for _, f := range fragments {
		k := key{f.OriginalText, f.ElementKind}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

// ValidateNewFragment checks the invariants of a fragment before insert.
func ValidateNewFragment(f types.NewFragment) error {
	switch {
	case f.SiteID == uuid.Nil:
		return errors.New("fragment site is required")
	case strings.TrimSpace(f.OriginalText) == "":
		return errors.New("fragment text is empty")
	case f.LanguageCode == "":
		return errors.New("fragment language is required")
	case !strings.HasPrefix(f.Path, "/"):
		return errors.New("fragment path must start with /")
	case !f.ElementKind.IsValid():
		return errors.New("fragment element kind is not extractable: " + string(f.ElementKind))
	}
	return nil
}
