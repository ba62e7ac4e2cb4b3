// Package types provides type definitions for structured data used throughout the site translator.
package types

import (
	"time"

	"github.com/google/uuid"
)

// ElementKind is the structural tag category a fragment was extracted from.
type ElementKind string

// ElementKind constants. The vocabulary is fixed.
const (
	KindH1     ElementKind = "h1"
	KindH2     ElementKind = "h2"
	KindH3     ElementKind = "h3"
	KindH4     ElementKind = "h4"
	KindH5     ElementKind = "h5"
	KindH6     ElementKind = "h6"
	KindP      ElementKind = "p"
	KindSpan   ElementKind = "span"
	KindA      ElementKind = "a"
	KindButton ElementKind = "button"
)

// ElementKinds is the ordered list of extractable element kinds.
var ElementKinds = []ElementKind{
	KindH1, KindH2, KindH3, KindH4, KindH5, KindH6,
	KindP, KindSpan, KindA, KindButton,
}

// IsValid reports whether k belongs to the element kind vocabulary.
func (k ElementKind) IsValid() bool {
	for _, kind := range ElementKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ParseElementKind returns the ElementKind for an HTML tag name, or false
// when the tag is not extractable.
func ParseElementKind(tag string) (ElementKind, bool) {
	k := ElementKind(tag)
	return k, k.IsValid()
}

// DefaultSourceLanguage is the language code recorded for freshly ingested fragments.
const DefaultSourceLanguage = "en"

// Site is a crawled target identified by hostname.
type Site struct {
	ID        uuid.UUID `json:"id"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"createdAt"`
}

// Fragment is one extracted text unit with its optional translation.
type Fragment struct {
	ID             uuid.UUID   `json:"id"`
	SiteID         uuid.UUID   `json:"websiteId"`
	OriginalText   string      `json:"originalText"`
	TranslatedText *string     `json:"translatedText"`
	LanguageCode   string      `json:"languageCode"`
	Path           string      `json:"path"`
	ElementKind    ElementKind `json:"elementKind"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// IsTranslated reports whether the fragment carries a translation.
func (f *Fragment) IsTranslated() bool {
	return f.TranslatedText != nil
}

// SiteFragment is a Fragment joined with its owning site's domain.
type SiteFragment struct {
	Fragment
	Domain string `json:"domain"`
}

// NewFragment describes a fragment to be inserted.
type NewFragment struct {
	SiteID         uuid.UUID
	OriginalText   string
	TranslatedText *string
	LanguageCode   string
	Path           string
	ElementKind    ElementKind
}
