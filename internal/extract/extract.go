// Package extract finds translatable text fragments in parsed HTML pages.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/sitetranslate/internal/types"
)

// selector matches every extractable element kind.
var selector = buildSelector(types.ElementKinds)

func buildSelector(kinds []types.ElementKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

// Parse parses an HTML document. Malformed markup is repaired by the parser.
func Parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Fragments returns the trimmed text of every extractable element in
// document order. Elements with empty text are skipped. Repeated text is
// emitted once per element.
func Fragments(doc *goquery.Document) []types.ExtractedFragment {
	var fragments []types.ExtractedFragment
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		kind, ok := types.ParseElementKind(goquery.NodeName(s))
		if !ok {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		fragments = append(fragments, types.ExtractedFragment{Text: text, Kind: kind})
	})
	return fragments
}

// TextCount is the aggregate character count of the fragments' text.
func TextCount(fragments []types.ExtractedFragment) int {
	total := 0
	for _, f := range fragments {
		total += utf8.RuneCountInString(f.Text)
	}
	return total
}

// Title returns the document title, or fallback when the page has none.
func Title(doc *goquery.Document, fallback string) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return fallback
	}
	return title
}

// PlainText joins the fragments into one block, used for language detection.
func PlainText(fragments []types.ExtractedFragment) string {
	var sb strings.Builder
	for i, f := range fragments {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(f.Text)
	}
	return sb.String()
}
