package types

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// validate reports field errors under their JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MapWebsiteRequest is the body of POST /api/map-website.
type MapWebsiteRequest struct {
	URL      string `json:"url" validate:"required,url"`
	MaxPages int    `json:"maxPages,omitempty" validate:"omitempty,min=1,max=500"`
}

// MapWebsiteResponse is returned by POST /api/map-website.
type MapWebsiteResponse struct {
	Domain     string        `json:"domain"`
	Pages      []CrawlResult `json:"pages"`
	TotalPages int           `json:"totalPages"`
}

// FetchWebsiteRequest is the body of POST /api/fetch-website.
type FetchWebsiteRequest struct {
	URL           string   `json:"url" validate:"required,url"`
	SelectedPages []string `json:"selectedPages" validate:"required,min=1,dive,required"`
}

// FetchWebsiteResponse is returned by POST /api/fetch-website.
type FetchWebsiteResponse struct {
	Message           string    `json:"message"`
	WebsiteID         uuid.UUID `json:"websiteId"`
	Domain            string    `json:"domain"`
	TranslationsCount int       `json:"translationsCount"`
}

// TranslateWebsiteRequest is the body of POST /api/translate-website.
type TranslateWebsiteRequest struct {
	WebsiteID      string `json:"websiteId" validate:"required,uuid"`
	TargetLanguage string `json:"targetLanguage" validate:"required,min=2,max=35"`
}

// TranslateProgress reports the state of a translate-fill run.
type TranslateProgress struct {
	Done       int       `json:"done"`
	Total      int       `json:"total"`
	Failed     int       `json:"failed"`
	FragmentID uuid.UUID `json:"fragmentId,omitempty"`
}

// Validate validates the MapWebsiteRequest using the validator.
func (r *MapWebsiteRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the FetchWebsiteRequest using the validator.
func (r *FetchWebsiteRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the TranslateWebsiteRequest using the validator.
func (r *TranslateWebsiteRequest) Validate() error {
	return validate.Struct(r)
}
