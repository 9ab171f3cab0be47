// Package service provides business logic for the application.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/trimlink/trimlink/internal/auth"
	"github.com/trimlink/trimlink/internal/cache"
	"github.com/trimlink/trimlink/internal/metrics"
	"github.com/trimlink/trimlink/internal/model"
	"github.com/trimlink/trimlink/internal/repository"
)

// Service errors.
var (
	ErrInvalidDestination  = errors.New("invalid destination URL")
	ErrInvalidAlias        = errors.New("invalid alias format")
	ErrAliasExists         = errors.New("alias already exists")
	ErrGenerationExhausted = errors.New("alias generation exhausted")
	ErrLinkNotFound        = errors.New("link not found")
	ErrLinkExpired         = errors.New("link is expired")
	ErrLinkDisabled        = errors.New("link is disabled")
	ErrInvalidPassword     = errors.New("invalid link password")
	ErrExpiresInPast       = errors.New("expires_at must be in the future")
	ErrURLTooLong          = errors.New("destination URL too long")
)

// Alias validation regex: 3-50 chars, alphanumeric + hyphen/underscore.
var aliasRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

const (
	maxDestinationLength = 2048
	aliasLength          = 6
	aliasAlphabet        = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	maxAliasRetries      = 20
)

// LinkStore is the persistent-store surface the link service needs.
type LinkStore interface {
	CreateLink(ctx context.Context, link *model.Link) error
	GetLinkByID(ctx context.Context, id string) (*model.Link, error)
	GetLinkByShortURL(ctx context.Context, shortURL string) (*model.Link, error)
	UpdateLink(ctx context.Context, link *model.Link) error
	DeleteLink(ctx context.Context, id string) error
	DeleteLinks(ctx context.Context, ids []string) error
	GetLinksByIDs(ctx context.Context, ids []string) ([]*model.Link, error)
	ShortURLExists(ctx context.Context, shortURL string) (bool, error)
}

// LinkService handles link business logic and the resolution hot path.
type LinkService struct {
	repo    LinkStore
	domains *DomainService
	cache   *cache.Store
	metrics metrics.Recorder
}

// NewLinkService creates a new LinkService.
func NewLinkService(repo LinkStore, domains *DomainService, cacheStore *cache.Store, recorder metrics.Recorder) *LinkService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &LinkService{
		repo:    repo,
		domains: domains,
		cache:   cacheStore,
		metrics: recorder,
	}
}

// CreateLinkInput defines input for creating a link.
type CreateLinkInput struct {
	OriginalURL string
	Alias       string
	Password    string
	Description string
	ExpiresAt   *time.Time
	UserID      string // empty for anonymous creation
	DomainID    string
}

// CreateLink creates a new short link.
func (s *LinkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	if err := validateDestination(input.OriginalURL); err != nil {
		return nil, err
	}

	if input.ExpiresAt != nil && input.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpiresInPast
	}

	domain, err := s.domains.GetDomain(ctx, input.DomainID)
	if err != nil {
		return nil, err
	}

	alias, shortURL, err := s.mintShortURL(ctx, domain.Hostname, input.Alias)
	if err != nil {
		return nil, err
	}

	var passwordHash string
	if input.Password != "" {
		passwordHash, err = auth.HashPassword(input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash link password: %w", err)
		}
	}

	now := time.Now().UTC()
	link := &model.Link{
		ID:           ulid.Make().String(),
		ShortURL:     shortURL,
		Alias:        alias,
		OriginalURL:  input.OriginalURL,
		Description:  input.Description,
		PasswordHash: passwordHash,
		ExpiresAt:    input.ExpiresAt,
		UserID:       input.UserID,
		DomainID:     domain.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateLink(ctx, link); err != nil {
		// The unique index is the real guarantee; a concurrent creation
		// can still slip past the existence probe.
		if errors.Is(err, repository.ErrAliasExists) {
			return nil, ErrAliasExists
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	s.metrics.IncLinkCreated()

	return link, nil
}

// GetLink retrieves a link by ID.
func (s *LinkService) GetLink(ctx context.Context, id string) (*model.Link, error) {
	link, err := s.repo.GetLinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	return link, nil
}

// UpdateLinkInput defines input for updating a link.
type UpdateLinkInput struct {
	ID            string
	OriginalURL   *string
	Alias         *string
	Password      *string
	ClearPassword bool
	Description   *string
	Disabled      *bool
	ExpiresAt     *time.Time
	ClearExpiry   bool
	DomainID      *string
}

// UpdateLink updates a link's mutable fields. Alias uniqueness is
// re-verified when the alias or domain changes. On success the cache
// entry is invalidated and refreshed so the next read observes the
// post-update state.
func (s *LinkService) UpdateLink(ctx context.Context, input UpdateLinkInput) (*model.Link, error) {
	link, err := s.repo.GetLinkByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	oldShortURL := link.ShortURL

	if input.OriginalURL != nil {
		if err := validateDestination(*input.OriginalURL); err != nil {
			return nil, err
		}
		link.OriginalURL = *input.OriginalURL
	}

	if input.Description != nil {
		link.Description = *input.Description
	}

	if input.Disabled != nil {
		link.Disabled = *input.Disabled
	}

	if input.ClearExpiry {
		link.ExpiresAt = nil
	} else if input.ExpiresAt != nil {
		if input.ExpiresAt.Before(time.Now()) {
			return nil, ErrExpiresInPast
		}
		link.ExpiresAt = input.ExpiresAt
	}

	if input.ClearPassword {
		link.PasswordHash = ""
	} else if input.Password != nil && *input.Password != "" {
		hash, err := auth.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("hash link password: %w", err)
		}
		link.PasswordHash = hash
	}

	if input.DomainID != nil {
		link.DomainID = *input.DomainID
	}
	if input.Alias != nil {
		link.Alias = *input.Alias
	}

	// Re-derive and re-verify the short URL when alias or domain moved.
	if input.Alias != nil || input.DomainID != nil {
		domain, err := s.domains.GetDomain(ctx, link.DomainID)
		if err != nil {
			return nil, err
		}
		if !aliasRegex.MatchString(link.Alias) {
			return nil, ErrInvalidAlias
		}
		newShortURL := domain.Hostname + "/" + link.Alias
		if newShortURL != oldShortURL {
			exists, err := s.repo.ShortURLExists(ctx, newShortURL)
			if err != nil {
				return nil, fmt.Errorf("probe short URL: %w", err)
			}
			if exists {
				return nil, ErrAliasExists
			}
		}
		link.ShortURL = newShortURL
	}

	link.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateLink(ctx, link); err != nil {
		if errors.Is(err, repository.ErrAliasExists) {
			return nil, ErrAliasExists
		}
		return nil, err
	}

	s.metrics.IncLinkUpdated()

	// Refresh the cache entry under the current key; a moved alias also
	// needs its old key dropped.
	if link.ShortURL != oldShortURL {
		s.cache.Invalidate(ctx, cache.LinkKey(oldShortURL))
	}
	shortURL := link.ShortURL
	if _, err := cache.InvalidateAndRefresh(ctx, s.cache, cache.LinkKey(shortURL), func(ctx context.Context) (*model.Link, error) {
		return s.repo.GetLinkByShortURL(ctx, shortURL)
	}); err != nil {
		// Cache refresh failure leaves the entry invalidated, which is
		// safe; the next read repopulates it.
		_ = err
	}

	return link, nil
}

// DeleteLink removes a link and its click stats, then drops the cache
// entry without repopulating it.
func (s *LinkService) DeleteLink(ctx context.Context, id string) error {
	link, err := s.repo.GetLinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return err
	}

	if err := s.repo.DeleteLink(ctx, id); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return err
	}

	s.metrics.IncLinkDeleted()

	s.cache.Invalidate(ctx, cache.LinkKey(link.ShortURL))

	return nil
}

// DeleteLinks removes a batch of links: the affected cache entries are
// dropped with one batched delete, then the links and their stats are
// removed in a single transaction.
func (s *LinkService) DeleteLinks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	links, err := s.repo.GetLinksByIDs(ctx, ids)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(links))
	for _, link := range links {
		keys = append(keys, cache.LinkKey(link.ShortURL))
	}
	s.cache.InvalidateMany(ctx, keys...)

	if err := s.repo.DeleteLinks(ctx, ids); err != nil {
		return err
	}

	for range links {
		s.metrics.IncLinkDeleted()
	}

	return nil
}

// Resolution is the outcome of resolving a short URL.
type Resolution struct {
	Link        *model.Link
	OriginalURL string

	// PasswordRequired instructs the caller to redirect to the
	// password-entry page instead of the original URL.
	PasswordRequired bool
}

// Resolve turns a short URL into a redirect decision.
// This is the hot path - optimized for speed with cache-first lookup.
func (s *LinkService) Resolve(ctx context.Context, shortURL string) (*Resolution, error) {
	link, err := s.lookup(ctx, shortURL)
	if err != nil {
		return nil, err
	}

	if link.IsProtected() {
		return &Resolution{Link: link, PasswordRequired: true}, nil
	}

	return &Resolution{Link: link, OriginalURL: link.OriginalURL}, nil
}

// ResolveProtected resolves a password-protected short URL with a
// submitted password.
func (s *LinkService) ResolveProtected(ctx context.Context, shortURL, password string) (*Resolution, error) {
	link, err := s.lookup(ctx, shortURL)
	if err != nil {
		return nil, err
	}

	if link.IsProtected() {
		ok, err := auth.VerifyPassword(password, link.PasswordHash)
		if err != nil || !ok {
			return nil, ErrInvalidPassword
		}
	}

	return &Resolution{Link: link, OriginalURL: link.OriginalURL}, nil
}

// lookup runs the shared resolution steps: cache-first fetch, disabled
// check, and expiry check-and-evict. The expiry check runs on every
// resolution so a stale cache hit never extends a link's life past its
// expiry date.
func (s *LinkService) lookup(ctx context.Context, shortURL string) (*model.Link, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveResolveDuration(time.Since(start))
	}()

	loaded := false
	link, err := cache.GetOrSet(ctx, s.cache, cache.LinkKey(shortURL), func(ctx context.Context) (*model.Link, error) {
		loaded = true
		return s.repo.GetLinkByShortURL(ctx, shortURL)
	})
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	if loaded {
		s.metrics.IncResolveCacheMiss()
	} else {
		s.metrics.IncResolveCacheHit()
	}

	if link.Disabled {
		return nil, ErrLinkDisabled
	}

	if link.IsExpired() {
		s.cache.Invalidate(ctx, cache.LinkKey(shortURL))
		return nil, ErrLinkExpired
	}

	return link, nil
}

// mintShortURL produces a unique shortURL for the domain, either from
// a caller-supplied alias or a random one.
func (s *LinkService) mintShortURL(ctx context.Context, hostname, alias string) (string, string, error) {
	if alias != "" {
		if !aliasRegex.MatchString(alias) {
			return "", "", ErrInvalidAlias
		}
		shortURL := hostname + "/" + alias
		exists, err := s.repo.ShortURLExists(ctx, shortURL)
		if err != nil {
			return "", "", fmt.Errorf("probe short URL: %w", err)
		}
		if exists {
			return "", "", ErrAliasExists
		}
		return alias, shortURL, nil
	}

	for i := 0; i < maxAliasRetries; i++ {
		candidate := randomAlias()
		shortURL := hostname + "/" + candidate
		exists, err := s.repo.ShortURLExists(ctx, shortURL)
		if err != nil {
			return "", "", fmt.Errorf("probe short URL: %w", err)
		}
		if !exists {
			return candidate, shortURL, nil
		}
	}

	return "", "", ErrGenerationExhausted
}

// validateDestination validates a destination URL.
func validateDestination(dest string) error {
	if dest == "" {
		return ErrInvalidDestination
	}

	if len(dest) > maxDestinationLength {
		return ErrURLTooLong
	}

	parsed, err := url.Parse(dest)
	if err != nil {
		return ErrInvalidDestination
	}

	// Only allow http and https schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidDestination
	}

	// Must have a host
	if parsed.Host == "" {
		return ErrInvalidDestination
	}

	return nil
}

// randomAlias generates a random fixed-length alias using crypto/rand.
func randomAlias() string {
	b := make([]byte, aliasLength)
	for i := range b {
		idx, err := cryptoRandInt(len(aliasAlphabet))
		if err != nil {
			// Fallback (should never happen in practice)
			idx = 0
		}
		b[i] = aliasAlphabet[idx]
	}
	return string(b)
}

// cryptoRandInt returns a cryptographically secure random integer in [0, max).
func cryptoRandInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
