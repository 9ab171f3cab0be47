//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/trimlink/trimlink/internal/model"
	"github.com/trimlink/trimlink/internal/testutil"
)

func TestIntegrationCreateLink(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	alias := testutil.UniqueAlias("create")
	link := testutil.NewTestLink(t, alias)

	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	retrieved, err := repo.GetLinkByID(ctx, link.ID)
	if err != nil {
		t.Fatalf("GetLinkByID failed: %v", err)
	}
	if retrieved.ShortURL != link.ShortURL {
		t.Errorf("ShortURL mismatch: got %q, want %q", retrieved.ShortURL, link.ShortURL)
	}
	if retrieved.OriginalURL != link.OriginalURL {
		t.Errorf("OriginalURL mismatch: got %q, want %q", retrieved.OriginalURL, link.OriginalURL)
	}
	if retrieved.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestIntegrationCreateLink_DuplicateShortURL(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	alias := testutil.UniqueAlias("dup")
	link1 := testutil.NewTestLink(t, alias)
	link2 := testutil.NewTestLink(t, alias)
	link2.ID = ulid.Make().String() // Different ID, same short_url

	if err := repo.CreateLink(ctx, link1); err != nil {
		t.Fatalf("CreateLink (first) failed: %v", err)
	}

	if err := repo.CreateLink(ctx, link2); !errors.Is(err, ErrAliasExists) {
		t.Errorf("Expected ErrAliasExists, got: %v", err)
	}
}

func TestIntegrationGetLinkByShortURL(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	link := testutil.NewTestLink(t, testutil.UniqueAlias("byshort"))
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	retrieved, err := repo.GetLinkByShortURL(ctx, link.ShortURL)
	if err != nil {
		t.Fatalf("GetLinkByShortURL failed: %v", err)
	}
	if retrieved.ID != link.ID {
		t.Errorf("ID mismatch: got %q, want %q", retrieved.ID, link.ID)
	}

	if _, err := repo.GetLinkByShortURL(ctx, "trim.test/nonexistent"); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("Expected ErrLinkNotFound, got: %v", err)
	}
}

func TestIntegrationUpdateLink(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	link := testutil.NewTestLink(t, testutil.UniqueAlias("update"))
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	link.OriginalURL = "https://example.com/moved"
	link.Disabled = true
	link.UpdatedAt = time.Now().UTC()
	if err := repo.UpdateLink(ctx, link); err != nil {
		t.Fatalf("UpdateLink failed: %v", err)
	}

	retrieved, err := repo.GetLinkByID(ctx, link.ID)
	if err != nil {
		t.Fatalf("GetLinkByID failed: %v", err)
	}
	if retrieved.OriginalURL != "https://example.com/moved" {
		t.Errorf("OriginalURL = %q", retrieved.OriginalURL)
	}
	if !retrieved.Disabled {
		t.Error("Disabled should be persisted")
	}
}

func TestIntegrationUpdateLink_NotFound(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	link := testutil.NewTestLink(t, testutil.UniqueAlias("ghost"))
	if err := repo.UpdateLink(ctx, link); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("Expected ErrLinkNotFound, got: %v", err)
	}
}

func TestIntegrationDeleteLink_CascadesClickStats(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	link := testutil.NewTestLink(t, testutil.UniqueAlias("delete"))
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	stat := &model.ClickStat{
		ID:        ulid.Make().String(),
		LinkID:    link.ID,
		Browser:   "Chrome",
		OS:        "Linux",
		ClickedAt: time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.InsertClickStat(ctx, stat); err != nil {
		t.Fatalf("InsertClickStat failed: %v", err)
	}

	if err := repo.DeleteLink(ctx, link.ID); err != nil {
		t.Fatalf("DeleteLink failed: %v", err)
	}

	if _, err := repo.GetLinkByID(ctx, link.ID); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("Expected ErrLinkNotFound after delete, got: %v", err)
	}
	count, err := repo.CountClickStats(ctx, link.ID)
	if err != nil {
		t.Fatalf("CountClickStats failed: %v", err)
	}
	if count != 0 {
		t.Errorf("click stats should be deleted with the link, %d remain", count)
	}
}

func TestIntegrationDeleteLinks(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		link := testutil.NewTestLink(t, testutil.UniqueAlias("bulk"))
		if err := repo.CreateLink(ctx, link); err != nil {
			t.Fatalf("CreateLink failed: %v", err)
		}
		ids = append(ids, link.ID)
	}

	if err := repo.DeleteLinks(ctx, ids[:2]); err != nil {
		t.Fatalf("DeleteLinks failed: %v", err)
	}

	if _, err := repo.GetLinkByID(ctx, ids[0]); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("Expected ErrLinkNotFound, got: %v", err)
	}
	if _, err := repo.GetLinkByID(ctx, ids[2]); err != nil {
		t.Errorf("surviving link should remain: %v", err)
	}
}

func TestIntegrationListExpiredLinks(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	expired := testutil.NewTestLinkWithExpiry(t, testutil.UniqueAlias("expired"), time.Now().Add(-time.Hour).UTC())
	active := testutil.NewTestLinkWithExpiry(t, testutil.UniqueAlias("active"), time.Now().Add(time.Hour).UTC())
	forever := testutil.NewTestLink(t, testutil.UniqueAlias("forever"))

	for _, link := range []*model.Link{expired, active, forever} {
		if err := repo.CreateLink(ctx, link); err != nil {
			t.Fatalf("CreateLink failed: %v", err)
		}
	}

	links, err := repo.ListExpiredLinks(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("ListExpiredLinks failed: %v", err)
	}

	found := false
	for _, link := range links {
		if link.ID == expired.ID {
			found = true
		}
		if link.ID == active.ID || link.ID == forever.ID {
			t.Errorf("link %s should not be listed as expired", link.ID)
		}
	}
	if !found {
		t.Error("expired link missing from the list")
	}
}

func TestIntegrationShortURLExists(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	link := testutil.NewTestLink(t, testutil.UniqueAlias("probe"))
	if err := repo.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	exists, err := repo.ShortURLExists(ctx, link.ShortURL)
	if err != nil {
		t.Fatalf("ShortURLExists failed: %v", err)
	}
	if !exists {
		t.Error("expected existing short URL to be reported")
	}

	exists, err = repo.ShortURLExists(ctx, "trim.test/never-minted")
	if err != nil {
		t.Fatalf("ShortURLExists failed: %v", err)
	}
	if exists {
		t.Error("expected missing short URL to be reported absent")
	}
}

func TestIntegrationDomains(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	domain, err := repo.GetDomainByID(ctx, "test-domain")
	if err != nil {
		t.Fatalf("GetDomainByID failed: %v", err)
	}
	if domain.Hostname != "trim.test" {
		t.Errorf("hostname = %q", domain.Hostname)
	}

	if _, err := repo.GetDomainByID(ctx, "missing"); !errors.Is(err, ErrDomainNotFound) {
		t.Errorf("Expected ErrDomainNotFound, got: %v", err)
	}

	domains, err := repo.ListDomains(ctx)
	if err != nil {
		t.Fatalf("ListDomains failed: %v", err)
	}
	if len(domains) == 0 {
		t.Error("expected at least the seeded domain")
	}
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newRepoTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	if err := Migrate(dbURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.TruncateAll(ctx, repo.Pool()); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	// Seed the domain every test link references.
	_, err = repo.Pool().Exec(ctx,
		`INSERT INTO domains (id, hostname) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		"test-domain", "trim.test",
	)
	if err != nil {
		t.Fatalf("seed domain: %v", err)
	}

	return ctx, repo
}
