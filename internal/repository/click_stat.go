package repository

import (
	"context"
	"fmt"

	"github.com/trimlink/trimlink/internal/model"
)

// InsertClickStat appends one click record. Called off the redirect
// path by the stat worker pool.
func (r *Repository) InsertClickStat(ctx context.Context, stat *model.ClickStat) error {
	query := `
		INSERT INTO click_stats (id, link_id, referrer, country, os, browser, clicked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		stat.ID,
		stat.LinkID,
		nullableString(stat.Referrer),
		nullableString(stat.Country),
		nullableString(stat.OS),
		nullableString(stat.Browser),
		stat.ClickedAt,
		stat.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert click stat: %w", err)
	}

	return nil
}

// CountClickStats returns the number of click records for a link.
func (r *Repository) CountClickStats(ctx context.Context, linkID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM click_stats WHERE link_id = $1`, linkID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count click stats: %w", err)
	}
	return count, nil
}
