// Package cron provides the background expiry sweep.
package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trimlink/trimlink/internal/cache"
	"github.com/trimlink/trimlink/internal/metrics"
	"github.com/trimlink/trimlink/internal/model"
)

const (
	// DefaultInterval is the time between sweep cycles.
	DefaultInterval = 15 * time.Minute

	// DefaultLockTTL is the lease on the sweep lock. It must exceed
	// the worst-case sweep duration and stay short enough that a
	// crashed holder does not block sweeps for long.
	DefaultLockTTL = 60 * time.Second
)

// LinkStore is the persistent-store surface the evictor needs.
type LinkStore interface {
	ListExpiredLinks(ctx context.Context, now time.Time) ([]*model.Link, error)
	DeleteLink(ctx context.Context, id string) error
}

// Evictor deletes expired links from the persistent store and the
// cache on a fixed interval. Multiple instances coordinate through a
// cache-backed lock so exactly one performs each sweep; the others
// skip the cycle entirely.
type Evictor struct {
	repo    LinkStore
	store   *cache.Store
	client  cache.Client
	logger  *slog.Logger
	metrics metrics.Recorder

	interval time.Duration
	lockTTL  time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewEvictor creates an Evictor. Zero interval or lockTTL select the
// defaults.
func NewEvictor(repo LinkStore, store *cache.Store, client cache.Client, logger *slog.Logger, interval, lockTTL time.Duration, recorder metrics.Recorder) *Evictor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Evictor{
		repo:     repo,
		store:    store,
		client:   client,
		logger:   logger.With("component", "cron.evictor"),
		metrics:  recorder,
		interval: interval,
		lockTTL:  lockTTL,
	}
}

// Run starts the sweep loop. Blocks until the context is cancelled.
func (e *Evictor) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("evictor already started")
	}
	e.started = true
	e.done = make(chan struct{})
	ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	defer close(e.done)

	e.logger.Info("expiry evictor started", "interval", e.interval)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("expiry evictor stopping")
			return ctx.Err()
		case <-ticker.C:
			// A failed sweep must never crash the process; the lock TTL
			// lets the next cycle retry.
			if err := e.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("sweep failed", "error", err)
				e.metrics.IncSweepRun("failed")
			}
		}
	}
}

// Shutdown stops the loop and waits for an in-flight sweep to finish.
// It implements server.ShutdownFunc.
func (e *Evictor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep runs one eviction cycle: acquire the distributed lock, delete
// all expired links, release the lock. Returns nil when another
// instance holds the lock.
func (e *Evictor) Sweep(ctx context.Context) error {
	lock := cache.NewLock(e.client, cache.CronLockKey)

	held, err := lock.Acquire(ctx, e.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !held {
		e.logger.Debug("sweep lock held elsewhere, skipping cycle")
		e.metrics.IncSweepRun("skipped")
		return nil
	}
	// Release on completion, success or failure; TTL expiry covers a
	// crash in between.
	defer func() {
		if err := lock.Release(ctx); err != nil {
			e.logger.Warn("failed to release sweep lock", "error", err)
		}
	}()

	links, err := e.repo.ListExpiredLinks(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("list expired links: %w", err)
	}

	deleted := 0
	for _, link := range links {
		// Cache entry goes first so a racing resolution cannot serve
		// the link from cache after the row is gone.
		e.store.Invalidate(ctx, cache.LinkKey(link.ShortURL))

		if err := e.repo.DeleteLink(ctx, link.ID); err != nil {
			e.logger.Warn("failed to delete expired link",
				"link_id", link.ID,
				"short_url", link.ShortURL,
				"error", err,
			)
			continue
		}
		deleted++
	}

	if deleted > 0 || len(links) > 0 {
		e.logger.Info("sweep completed", "expired", len(links), "deleted", deleted)
	}
	e.metrics.IncSweepRun("swept")
	e.metrics.ObserveSweepDeleted(deleted)

	return nil
}
