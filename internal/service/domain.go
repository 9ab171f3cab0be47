package service

import (
	"context"
	"errors"

	"github.com/trimlink/trimlink/internal/cache"
	"github.com/trimlink/trimlink/internal/model"
	"github.com/trimlink/trimlink/internal/repository"
)

// ErrDomainInvalid indicates a create or update referenced an unknown
// domain id.
var ErrDomainInvalid = errors.New("unknown domain")

// DomainStore is the persistent-store surface the domain service needs.
type DomainStore interface {
	GetDomainByID(ctx context.Context, id string) (*model.Domain, error)
	ListDomains(ctx context.Context) ([]*model.Domain, error)
}

// DomainService serves domain lookups through the cache-aside store.
// Domains are read-mostly; mutations happen out of band and call the
// invalidation helpers.
type DomainService struct {
	store *cache.Store
	repo  DomainStore
}

// NewDomainService creates a new DomainService.
func NewDomainService(repo DomainStore, store *cache.Store) *DomainService {
	return &DomainService{store: store, repo: repo}
}

// GetDomain returns a domain by id, cached under domain:<id>.
func (s *DomainService) GetDomain(ctx context.Context, id string) (*model.Domain, error) {
	domain, err := cache.GetOrSet(ctx, s.store, cache.DomainKey(id), func(ctx context.Context) (*model.Domain, error) {
		return s.repo.GetDomainByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDomainNotFound) {
			return nil, ErrDomainInvalid
		}
		return nil, err
	}
	return domain, nil
}

// ListDomains returns all domains, cached under the list key.
func (s *DomainService) ListDomains(ctx context.Context) ([]*model.Domain, error) {
	return cache.GetOrSet(ctx, s.store, cache.DomainsKey(), func(ctx context.Context) ([]*model.Domain, error) {
		return s.repo.ListDomains(ctx)
	})
}

// InvalidateDomain drops the cached entry for one domain and the list.
func (s *DomainService) InvalidateDomain(ctx context.Context, id string) {
	s.store.InvalidateMany(ctx, cache.DomainKey(id), cache.DomainsKey())
}
