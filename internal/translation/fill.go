package translation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jonathan/sitetranslate/internal/types"
)

// TextTranslator is satisfied by *Translator.
type TextTranslator interface {
	Translate(ctx context.Context, text, target string) string
}

// FillStore is the part of the repository the fill loop needs.
type FillStore interface {
	FindUntranslated(ctx context.Context, siteID uuid.UUID) ([]types.Fragment, error)
	UpdateTranslation(ctx context.Context, fragmentID uuid.UUID, translatedText, languageCode string) error
}

// FillResult summarizes one fill run.
type FillResult struct {
	Total      int `json:"total"`
	Translated int `json:"translated"`
	Failed     int `json:"failed"`
}

// Fill translates every untranslated fragment of a site, one backend call at
// a time, and stores each result. A failed update is logged and skipped.
// progress, when non-nil, is called after every fragment.
func Fill(ctx context.Context, store FillStore, tr TextTranslator, siteID uuid.UUID, target string,
	progress func(types.TranslateProgress), logger *slog.Logger) (FillResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fragments, err := store.FindUntranslated(ctx, siteID)
	if err != nil {
		return FillResult{}, fmt.Errorf("failed to load untranslated fragments: %w", err)
	}

	result := FillResult{Total: len(fragments)}
	for i, f := range fragments {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		translated := tr.Translate(ctx, f.OriginalText, target)
		if err := store.UpdateTranslation(ctx, f.ID, translated, target); err != nil {
			result.Failed++
			logger.Error("failed to store translation",
				"fragment_id", f.ID,
				"target", target,
				"error", err,
			)
		} else {
			result.Translated++
		}

		if progress != nil {
			progress(types.TranslateProgress{
				Done:       i + 1,
				Total:      result.Total,
				Failed:     result.Failed,
				FragmentID: f.ID,
			})
		}
	}
	return result, nil
}
