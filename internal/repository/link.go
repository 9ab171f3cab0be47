package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/trimlink/trimlink/internal/model"
)

// Common errors for link repository operations.
var (
	ErrLinkNotFound = errors.New("link not found")
	ErrAliasExists  = errors.New("alias already exists")
)

const linkColumns = `id, short_url, alias, original_url, description, disabled, expires_at, password_hash, user_id, domain_id, created_at, updated_at`

// CreateLink inserts a new link. The unique index on short_url is the
// actual uniqueness guarantee; the generator's existence probe is only
// a fast path.
func (r *Repository) CreateLink(ctx context.Context, link *model.Link) error {
	query := `
		INSERT INTO links (id, short_url, alias, original_url, description, disabled, expires_at, password_hash, user_id, domain_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		link.ID,
		link.ShortURL,
		link.Alias,
		link.OriginalURL,
		link.Description,
		link.Disabled,
		link.ExpiresAt,
		nullableString(link.PasswordHash),
		nullableString(link.UserID),
		link.DomainID,
		link.CreatedAt,
		link.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrAliasExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// GetLinkByID retrieves a link by its ID.
func (r *Repository) GetLinkByID(ctx context.Context, id string) (*model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`

	link, err := scanLink(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by ID: %w", err)
	}

	return link, nil
}

// GetLinkByShortURL retrieves a link by its short URL.
// This is the hot path for redirects.
func (r *Repository) GetLinkByShortURL(ctx context.Context, shortURL string) (*model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_url = $1`

	link, err := scanLink(r.pool.QueryRow(ctx, query, shortURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by short URL: %w", err)
	}

	return link, nil
}

// UpdateLink updates a link's mutable fields.
// Returns ErrAliasExists when the new short URL collides.
func (r *Repository) UpdateLink(ctx context.Context, link *model.Link) error {
	query := `
		UPDATE links
		SET short_url = $2, alias = $3, original_url = $4, description = $5, disabled = $6, expires_at = $7, password_hash = $8, domain_id = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		link.ID,
		link.ShortURL,
		link.Alias,
		link.OriginalURL,
		link.Description,
		link.Disabled,
		link.ExpiresAt,
		nullableString(link.PasswordHash),
		link.DomainID,
		link.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrAliasExists
		}
		return fmt.Errorf("failed to update link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// DeleteLink removes a link and its click stats in a single
// transaction: either both deletes succeed or neither does.
func (r *Repository) DeleteLink(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete link: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM click_stats WHERE link_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete click stats: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete link: %w", err)
	}

	return nil
}

// DeleteLinks removes a batch of links and their click stats in one
// transaction.
func (r *Repository) DeleteLinks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bulk delete: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM click_stats WHERE link_id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete click stats: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM links WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("failed to delete links: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bulk delete: %w", err)
	}

	return nil
}

// GetLinksByIDs retrieves a batch of links by id. Missing ids are
// silently skipped; callers use the result for cache invalidation.
func (r *Repository) GetLinksByIDs(ctx context.Context, ids []string) ([]*model.Link, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + linkColumns + ` FROM links WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get links by ids: %w", err)
	}
	defer rows.Close()

	return collectLinks(rows)
}

// ListExpiredLinks returns all links whose expiry date has passed.
// Used by the expiry sweep.
func (r *Repository) ListExpiredLinks(ctx context.Context, now time.Time) ([]*model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE expires_at IS NOT NULL AND expires_at <= $1`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired links: %w", err)
	}
	defer rows.Close()

	return collectLinks(rows)
}

// ShortURLExists checks if a short URL is already taken.
func (r *Repository) ShortURLExists(ctx context.Context, shortURL string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM links WHERE short_url = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, shortURL).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check short URL existence: %w", err)
	}

	return exists, nil
}

func collectLinks(rows pgx.Rows) ([]*model.Link, error) {
	var links []*model.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}
	return links, nil
}

// scanLink scans a single row into a Link model.
func scanLink(row pgx.Row) (*model.Link, error) {
	var link model.Link
	var passwordHash, userID *string

	err := row.Scan(
		&link.ID,
		&link.ShortURL,
		&link.Alias,
		&link.OriginalURL,
		&link.Description,
		&link.Disabled,
		&link.ExpiresAt,
		&passwordHash,
		&userID,
		&link.DomainID,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if passwordHash != nil {
		link.PasswordHash = *passwordHash
	}
	if userID != nil {
		link.UserID = *userID
	}

	return &link, nil
}

// isUniqueViolation checks for a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// nullableString returns nil for empty strings.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
