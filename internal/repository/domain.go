package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/trimlink/trimlink/internal/model"
)

// ErrDomainNotFound indicates no domain exists with the given id.
var ErrDomainNotFound = errors.New("domain not found")

// GetDomainByID retrieves a domain by its id.
func (r *Repository) GetDomainByID(ctx context.Context, id string) (*model.Domain, error) {
	query := `SELECT id, hostname, created_at, updated_at FROM domains WHERE id = $1`

	var d model.Domain
	err := r.pool.QueryRow(ctx, query, id).Scan(&d.ID, &d.Hostname, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDomainNotFound
		}
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}

	return &d, nil
}

// ListDomains retrieves all domains ordered by hostname.
func (r *Repository) ListDomains(ctx context.Context) ([]*model.Domain, error) {
	query := `SELECT id, hostname, created_at, updated_at FROM domains ORDER BY hostname`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []*model.Domain
	for rows.Next() {
		var d model.Domain
		if err := rows.Scan(&d.ID, &d.Hostname, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating domains: %w", err)
	}

	return domains, nil
}
