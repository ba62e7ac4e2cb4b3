package extract

import (
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// minDetectionLength is the shortest text worth running detection on.
const minDetectionLength = 40

// DetectLanguage guesses the language of text and returns its two-letter
// code, or "" when the text is too short or detection is not reliable.
func DetectLanguage(text string) string {
	if len(text) < minDetectionLength {
		return ""
	}

	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}

	base, err := language.ParseBase(info.Lang.Iso6393())
	if err != nil {
		return ""
	}
	return base.String()
}
