package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/trimlink/trimlink/internal/cache"
	"github.com/trimlink/trimlink/internal/cache/cachetest"
	"github.com/trimlink/trimlink/internal/model"
)

type countingDomainStore struct {
	*fakeStore
	getCalls  int
	listCalls int
}

func (c *countingDomainStore) GetDomainByID(ctx context.Context, id string) (*model.Domain, error) {
	c.getCalls++
	return c.fakeStore.GetDomainByID(ctx, id)
}

func (c *countingDomainStore) ListDomains(ctx context.Context) ([]*model.Domain, error) {
	c.listCalls++
	return c.fakeStore.ListDomains(ctx)
}

func newTestDomainService(t *testing.T) (*DomainService, *countingDomainStore, *cachetest.Client) {
	t.Helper()
	store := &countingDomainStore{fakeStore: newFakeStore()}
	store.domains["dom-1"] = &model.Domain{ID: "dom-1", Hostname: "trim.test"}

	client := cachetest.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cacheStore := cache.NewStore(client, time.Minute, time.Second, logger)

	return NewDomainService(store, cacheStore), store, client
}

func TestGetDomain_CachesResult(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestDomainService(t)

	domain, err := svc.GetDomain(context.Background(), "dom-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain.Hostname != "trim.test" {
		t.Errorf("hostname = %q", domain.Hostname)
	}

	if _, err := svc.GetDomain(context.Background(), "dom-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.getCalls != 1 {
		t.Fatalf("expected 1 store read, got %d", store.getCalls)
	}
}

func TestGetDomain_Unknown(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestDomainService(t)

	if _, err := svc.GetDomain(context.Background(), "nope"); !errors.Is(err, ErrDomainInvalid) {
		t.Fatalf("expected ErrDomainInvalid, got %v", err)
	}
}

func TestListDomains_CachesResult(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestDomainService(t)

	domains, err := svc.ListDomains(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(domains) != 1 {
		t.Fatalf("expected 1 domain, got %d", len(domains))
	}

	if _, err := svc.ListDomains(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.listCalls != 1 {
		t.Fatalf("expected 1 store read, got %d", store.listCalls)
	}
}

func TestInvalidateDomain(t *testing.T) {
	t.Parallel()

	svc, store, client := newTestDomainService(t)

	if _, err := svc.GetDomain(context.Background(), "dom-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ListDomains(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.InvalidateDomain(context.Background(), "dom-1")

	if _, ok := client.Value(cache.DomainKey("dom-1")); ok {
		t.Error("domain entry must be dropped")
	}
	if _, ok := client.Value(cache.DomainsKey()); ok {
		t.Error("domain list entry must be dropped")
	}

	if _, err := svc.GetDomain(context.Background(), "dom-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.getCalls != 2 {
		t.Fatalf("expected reload after invalidation, store reads = %d", store.getCalls)
	}
}
