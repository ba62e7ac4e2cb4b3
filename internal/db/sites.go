package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/sitetranslate/internal/types"
)

// FindOrCreateSite finds the site for a domain or creates it. The insert and
// read run in one transaction so concurrent first crawls share one row.
func (db *DB) FindOrCreateSite(ctx context.Context, domain string) (*types.Site, error) {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return nil, fmt.Errorf("site domain cannot be empty")
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO sites (id, domain) VALUES ($1, $2)
		 ON CONFLICT (domain) DO NOTHING`,
		uuid.New(), domain,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create site: %w", err)
	}

	var s types.Site
	err = tx.QueryRow(ctx,
		`SELECT id, domain, created_at FROM sites WHERE domain = $1`,
		domain,
	).Scan(&s.ID, &s.Domain, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read site: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &s, nil
}

// FindSiteByDomain retrieves a site by its domain
func (db *DB) FindSiteByDomain(ctx context.Context, domain string) (*types.Site, error) {
	var s types.Site
	err := db.pool.QueryRow(ctx,
		`SELECT id, domain, created_at FROM sites WHERE domain = $1`,
		NormalizeDomain(domain),
	).Scan(&s.ID, &s.Domain, &s.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get site by domain: %w", err)
	}
	return &s, nil
}

// FindSiteByID retrieves a site by its UUID
func (db *DB) FindSiteByID(ctx context.Context, id uuid.UUID) (*types.Site, error) {
	var s types.Site
	err := db.pool.QueryRow(ctx,
		`SELECT id, domain, created_at FROM sites WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Domain, &s.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return &s, nil
}

// ListSites returns all sites, newest first
func (db *DB) ListSites(ctx context.Context) ([]types.Site, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, domain, created_at FROM sites ORDER BY created_at DESC, seq DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := make([]types.Site, 0)
	for rows.Next() {
		var s types.Site
		if err := rows.Scan(&s.ID, &s.Domain, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}
