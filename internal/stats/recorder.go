// Package stats provides asynchronous click telemetry capture.
// Recording is best-effort by contract: it never blocks and never
// fails the redirect path.
package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sethvargo/go-retry"

	"github.com/trimlink/trimlink/internal/metrics"
	"github.com/trimlink/trimlink/internal/model"
)

const (
	// DefaultQueueSize bounds the pending click queue.
	DefaultQueueSize = 4096

	// DefaultWorkers is the number of persisting goroutines.
	DefaultWorkers = 4

	// persistTimeout bounds one insert attempt chain.
	persistTimeout = 5 * time.Second

	// retryBase is the initial backoff between insert attempts.
	retryBase = 250 * time.Millisecond

	// maxPersistRetries caps insert attempts per click.
	maxPersistRetries = 3
)

// Click is one resolved redirect to record.
type Click struct {
	LinkID    string
	Referrer  string
	IP        string
	UserAgent string

	// CountryHint is a CDN-provided country header, used in preference
	// to the IP lookup when present.
	CountryHint string

	ClickedAt time.Time
}

// Store is the persistence surface the recorder needs.
type Store interface {
	InsertClickStat(ctx context.Context, stat *model.ClickStat) error
}

// GeoResolver maps a client IP to an ISO 3166-1 alpha-2 country code.
// Returns "" when the country is unknown.
type GeoResolver interface {
	Country(ip string) string
}

// Recorder accepts click submissions on a bounded queue and persists
// them from a worker pool. When the queue is full, clicks are dropped
// and counted; the redirect path is never slowed down.
type Recorder struct {
	store   Store
	geo     GeoResolver
	logger  *slog.Logger
	metrics metrics.Recorder

	queue   chan Click
	workers int

	mu       sync.RWMutex
	draining bool
	started  bool
	wg       sync.WaitGroup
}

// NewRecorder creates a Recorder. Zero queueSize or workers select the
// defaults.
func NewRecorder(store Store, geo GeoResolver, logger *slog.Logger, queueSize, workers int, recorder metrics.Recorder) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if geo == nil {
		geo = NewNoopGeo()
	}
	return &Recorder{
		store:   store,
		geo:     geo,
		logger:  logger.With("component", "stats.recorder"),
		metrics: recorder,
		queue:   make(chan Click, queueSize),
		workers: workers,
	}
}

// Record submits a click without blocking. Drops are logged and
// counted when the queue is full or the recorder is draining.
func (r *Recorder) Record(click Click) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.draining {
		r.metrics.IncStatRecorded("dropped")
		return
	}

	select {
	case r.queue <- click:
		r.metrics.SetStatQueueDepth(len(r.queue))
	default:
		r.logger.Warn("click stat queue full, dropping", "link_id", click.LinkID)
		r.metrics.IncStatRecorded("dropped")
	}
}

// Run starts the worker pool and blocks until Shutdown drains the
// queue.
func (r *Recorder) Run() error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.mu.Unlock()

	r.logger.Info("click stat recorder started", "workers", r.workers)

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}

	r.wg.Wait()
	return nil
}

// Shutdown stops intake and waits for the queue to drain or the
// context to expire. It implements server.ShutdownFunc.
func (r *Recorder) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return nil
	}
	r.draining = true
	r.mu.Unlock()

	close(r.queue)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("click stat recorder drained")
		return nil
	case <-ctx.Done():
		r.logger.Warn("click stat recorder shutdown timed out")
		return ctx.Err()
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for click := range r.queue {
		r.persist(click)
		r.metrics.SetStatQueueDepth(len(r.queue))
	}
}

// persist derives the stat fields and inserts with bounded retries.
// Uses its own context so an in-flight shutdown still drains cleanly.
func (r *Recorder) persist(click Click) {
	os, browser := ParseUserAgent(click.UserAgent)

	country := click.CountryHint
	if country == "" {
		country = r.geo.Country(click.IP)
	}

	stat := &model.ClickStat{
		ID:        ulid.Make().String(),
		LinkID:    click.LinkID,
		Referrer:  SanitizeReferrer(click.Referrer),
		Country:   country,
		OS:        os,
		Browser:   browser,
		ClickedAt: click.ClickedAt,
		CreatedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(maxPersistRetries, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := r.store.InsertClickStat(ctx, stat); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		r.logger.Warn("failed to persist click stat",
			"link_id", click.LinkID,
			"error", err,
		)
		r.metrics.IncStatRecorded("failed")
		return
	}

	r.metrics.IncStatRecorded("success")
}
