package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/sitetranslate/internal/types"
)

const fragmentColumns = `id, site_id, original_text, translated_text, language_code, path, element_kind, created_at`

// InsertFragment appends a fragment unless an identical one exists
func (db *DB) InsertFragment(ctx context.Context, f types.NewFragment) (bool, error) {
	if err := ValidateNewFragment(f); err != nil {
		return false, err
	}

	tag, err := db.pool.Exec(ctx,
		`INSERT INTO fragments (id, site_id, original_text, translated_text, language_code, path, element_kind)
		 SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::text, $7::text
		 WHERE NOT EXISTS (
		     SELECT 1 FROM fragments
		     WHERE site_id = $2 AND original_text = $3 AND language_code = $5
		       AND path = $6 AND element_kind = $7
		 )`,
		uuid.New(), f.SiteID, f.OriginalText, f.TranslatedText, f.LanguageCode, f.Path, string(f.ElementKind),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert fragment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// FindUntranslated returns fragments of a site that have no translation yet
func (db *DB) FindUntranslated(ctx context.Context, siteID uuid.UUID) ([]types.Fragment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+fragmentColumns+` FROM fragments
		 WHERE site_id = $1 AND translated_text IS NULL
		 ORDER BY seq`,
		siteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find untranslated fragments: %w", err)
	}
	return collectFragments(rows)
}

// UpdateTranslation stores the translation for a fragment
func (db *DB) UpdateTranslation(ctx context.Context, fragmentID uuid.UUID, translatedText, languageCode string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE fragments SET translated_text = $1, language_code = $2 WHERE id = $3`,
		translatedText, languageCode, fragmentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update translation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update translation %s: %w", fragmentID, ErrFragmentNotFound)
	}
	return nil
}

// FindByPathAndLanguage returns the fragments recorded for a page in a language
func (db *DB) FindByPathAndLanguage(ctx context.Context, siteID uuid.UUID, path, languageCode string) ([]types.Fragment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+fragmentColumns+` FROM fragments
		 WHERE site_id = $1 AND path = $2 AND language_code = $3
		 ORDER BY seq`,
		siteID, path, languageCode,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find fragments by path: %w", err)
	}
	fragments, err := collectFragments(rows)
	if err != nil {
		return nil, err
	}
	return DedupeFragments(fragments), nil
}

// FindTranslationByText returns the oldest translation of a text on a site
func (db *DB) FindTranslationByText(ctx context.Context, domain, originalText, languageCode string) (*string, error) {
	var translated string
	err := db.pool.QueryRow(ctx,
		`SELECT f.translated_text FROM fragments f
		 JOIN sites s ON s.id = f.site_id
		 WHERE s.domain = $1 AND f.original_text = $2 AND f.language_code = $3
		   AND f.translated_text IS NOT NULL
		 ORDER BY f.seq
		 LIMIT 1`,
		NormalizeDomain(domain), originalText, languageCode,
	).Scan(&translated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find translation: %w", err)
	}
	return &translated, nil
}

// ListFragmentsBySite returns all fragments of a site with its domain, newest first
func (db *DB) ListFragmentsBySite(ctx context.Context, siteID uuid.UUID) ([]types.SiteFragment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT f.id, f.site_id, f.original_text, f.translated_text, f.language_code,
		        f.path, f.element_kind, f.created_at, s.domain
		 FROM fragments f
		 JOIN sites s ON s.id = f.site_id
		 WHERE f.site_id = $1
		 ORDER BY f.created_at DESC, f.seq DESC`,
		siteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list fragments: %w", err)
	}
	defer rows.Close()

	fragments := make([]types.SiteFragment, 0)
	for rows.Next() {
		var sf types.SiteFragment
		var kind string
		if err := rows.Scan(&sf.ID, &sf.SiteID, &sf.OriginalText, &sf.TranslatedText, &sf.LanguageCode,
			&sf.Path, &kind, &sf.CreatedAt, &sf.Domain); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		sf.ElementKind = types.ElementKind(kind)
		fragments = append(fragments, sf)
	}
	return fragments, rows.Err()
}

func collectFragments(rows pgx.Rows) ([]types.Fragment, error) {
	defer rows.Close()

	fragments := make([]types.Fragment, 0)
	for rows.Next() {
		var f types.Fragment
		var kind string
		if err := rows.Scan(&f.ID, &f.SiteID, &f.OriginalText, &f.TranslatedText, &f.LanguageCode,
			&f.Path, &kind, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		f.ElementKind = types.ElementKind(kind)
		fragments = append(fragments, f)
	}
	return fragments, rows.Err()
}
