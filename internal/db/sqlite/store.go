// Package sqlite implements the site and fragment repository on a single
// SQLite file, for local runs and hermetic tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jonathan/sitetranslate/internal/db"
	"github.com/jonathan/sitetranslate/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS sites (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	domain TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fragments (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	site_id TEXT NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
	original_text TEXT NOT NULL,
	translated_text TEXT,
	language_code TEXT NOT NULL,
	path TEXT NOT NULL,
	element_kind TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fragments_site_path_lang ON fragments(site_id, path, language_code);
CREATE INDEX IF NOT EXISTS idx_fragments_text_lang ON fragments(original_text, language_code);
`

const fragmentColumns = `f.id, f.site_id, f.original_text, f.translated_text, f.language_code, f.path, f.element_kind, f.created_at`

// Store is a db.Repository backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ db.Repository = (*Store)(nil)

// Open opens or creates the database file at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	ctx := context.Background()
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Store{db: conn, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() {
	_ = s.db.Close()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// FindOrCreateSite finds the site for a domain or creates it in one transaction.
func (s *Store) FindOrCreateSite(ctx context.Context, domain string) (*types.Site, error) {
	domain = db.NormalizeDomain(domain)
	if domain == "" {
		return nil, fmt.Errorf("site domain cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sites (id, domain, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (domain) DO NOTHING`,
		uuid.New().String(), domain, s.timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create site: %w", err)
	}

	site, err := scanSite(tx.QueryRowContext(ctx,
		`SELECT id, domain, created_at FROM sites WHERE domain = ?`, domain))
	if err != nil {
		return nil, fmt.Errorf("failed to read site: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return site, nil
}

// FindSiteByDomain retrieves a site by its domain
func (s *Store) FindSiteByDomain(ctx context.Context, domain string) (*types.Site, error) {
	site, err := scanSite(s.db.QueryRowContext(ctx,
		`SELECT id, domain, created_at FROM sites WHERE domain = ?`, db.NormalizeDomain(domain)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site by domain: %w", err)
	}
	return site, nil
}

// FindSiteByID retrieves a site by its UUID
func (s *Store) FindSiteByID(ctx context.Context, id uuid.UUID) (*types.Site, error) {
	site, err := scanSite(s.db.QueryRowContext(ctx,
		`SELECT id, domain, created_at FROM sites WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}

// ListSites returns all sites, newest first
func (s *Store) ListSites(ctx context.Context) ([]types.Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, domain, created_at FROM sites ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := make([]types.Site, 0)
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, *site)
	}
	return sites, rows.Err()
}

// InsertFragment appends a fragment unless an identical one exists
func (s *Store) InsertFragment(ctx context.Context, f types.NewFragment) (bool, error) {
	if err := db.ValidateNewFragment(f); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO fragments (id, site_id, original_text, translated_text, language_code, path, element_kind, created_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (
		     SELECT 1 FROM fragments
		     WHERE site_id = ? AND original_text = ? AND language_code = ? AND path = ? AND element_kind = ?
		 )`,
		uuid.New().String(), f.SiteID.String(), f.OriginalText, f.TranslatedText, f.LanguageCode, f.Path,
		string(f.ElementKind), s.timestamp(),
		f.SiteID.String(), f.OriginalText, f.LanguageCode, f.Path, string(f.ElementKind),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert fragment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert fragment: %w", err)
	}
	return n == 1, nil
}

// FindUntranslated returns fragments of a site that have no translation yet
func (s *Store) FindUntranslated(ctx context.Context, siteID uuid.UUID) ([]types.Fragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments f
		 WHERE f.site_id = ? AND f.translated_text IS NULL
		 ORDER BY f.seq`,
		siteID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find untranslated fragments: %w", err)
	}
	return collectFragments(rows)
}

// UpdateTranslation stores the translation for a fragment
func (s *Store) UpdateTranslation(ctx context.Context, fragmentID uuid.UUID, translatedText, languageCode string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fragments SET translated_text = ?, language_code = ? WHERE id = ?`,
		translatedText, languageCode, fragmentID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update translation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update translation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to update translation %s: %w", fragmentID, db.ErrFragmentNotFound)
	}
	return nil
}

// FindByPathAndLanguage returns the fragments recorded for a page in a language
func (s *Store) FindByPathAndLanguage(ctx context.Context, siteID uuid.UUID, path, languageCode string) ([]types.Fragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments f
		 WHERE f.site_id = ? AND f.path = ? AND f.language_code = ?
		 ORDER BY f.seq`,
		siteID.String(), path, languageCode,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find fragments by path: %w", err)
	}
	fragments, err := collectFragments(rows)
	if err != nil {
		return nil, err
	}
	return db.DedupeFragments(fragments), nil
}

// FindTranslationByText returns the oldest translation of a text on a site
func (s *Store) FindTranslationByText(ctx context.Context, domain, originalText, languageCode string) (*string, error) {
	var translated string
	err := s.db.QueryRowContext(ctx,
		`SELECT f.translated_text FROM fragments f
		 JOIN sites s ON s.id = f.site_id
		 WHERE s.domain = ? AND f.original_text = ? AND f.language_code = ?
		   AND f.translated_text IS NOT NULL
		 ORDER BY f.seq
		 LIMIT 1`,
		db.NormalizeDomain(domain), originalText, languageCode,
	).Scan(&translated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find translation: %w", err)
	}
	return &translated, nil
}

// ListFragmentsBySite returns all fragments of a site with its domain, newest first
func (s *Store) ListFragmentsBySite(ctx context.Context, siteID uuid.UUID) ([]types.SiteFragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fragmentColumns+`, s.domain FROM fragments f
		 JOIN sites s ON s.id = f.site_id
		 WHERE f.site_id = ?
		 ORDER BY f.seq DESC`,
		siteID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list fragments: %w", err)
	}
	defer rows.Close()

	fragments := make([]types.SiteFragment, 0)
	for rows.Next() {
		var sf types.SiteFragment
		if err := scanFragment(rows, &sf.Fragment, &sf.Domain); err != nil {
			return nil, err
		}
		fragments = append(fragments, sf)
	}
	return fragments, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (*types.Site, error) {
	var site types.Site
	var id, created string
	if err := row.Scan(&id, &site.Domain, &created); err != nil {
		return nil, err
	}
	var err error
	if site.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid site id %q: %w", id, err)
	}
	if site.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("invalid site timestamp %q: %w", created, err)
	}
	return &site, nil
}

func scanFragment(row scanner, f *types.Fragment, extra ...any) error {
	var id, siteID, kind, created string
	var translated sql.NullString
	dest := append([]any{&id, &siteID, &f.OriginalText, &translated, &f.LanguageCode, &f.Path, &kind, &created}, extra...)
	if err := row.Scan(dest...); err != nil {
		return fmt.Errorf("failed to scan fragment: %w", err)
	}

	var err error
	if f.ID, err = uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid fragment id %q: %w", id, err)
	}
	if f.SiteID, err = uuid.Parse(siteID); err != nil {
		return fmt.Errorf("invalid site id %q: %w", siteID, err)
	}
	if f.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return fmt.Errorf("invalid fragment timestamp %q: %w", created, err)
	}
	if translated.Valid {
		text := translated.String
		f.TranslatedText = &text
	}
	f.ElementKind = types.ElementKind(kind)
	return nil
}

func collectFragments(rows *sql.Rows) ([]types.Fragment, error) {
	defer rows.Close()

	fragments := make([]types.Fragment, 0)
	for rows.Next() {
		var f types.Fragment
		if err := scanFragment(rows, &f); err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
	}
	return fragments, rows.Err()
}
