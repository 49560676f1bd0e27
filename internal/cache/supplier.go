package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// BlockingRefreshMaxWait is how long a caller on the stale path will wait to
// acquire the refresh (either by winning it or by joining an in-flight one)
// before giving up.
const BlockingRefreshMaxWait = 5 * time.Second

// RefreshOutcome is what a RefreshFunc produces on success: the new result
// plus the absolute instant jitter must not push stale_at past.
type RefreshOutcome[T any] struct {
	Result    *RefreshResult[T]
	ExpiresAt time.Time
}

// RefreshFunc fetches a fresh value. It is supplied by the owner of the
// supplier (e.g. a CredentialProvider) and performs whatever I/O is needed;
// the supplier itself knows nothing about what T is or how to obtain one.
type RefreshFunc[T any] func(ctx context.Context) (*RefreshOutcome[T], error)

// CachedResultSupplier is a generic, time-triggered cache holding a single
// RefreshResult[T]. It distinguishes fresh / prefetch-eligible / stale reads,
// single-flights concurrent refreshes, and jitters timings on every
// successful refresh.
type CachedResultSupplier[T any] struct {
	id       string
	refresh  RefreshFunc[T]
	strategy PrefetchStrategy
	policy   StalePolicy
	logger   *slog.Logger

	mu    sync.RWMutex
	entry *RefreshResult[T]

	sf singleflight.Group
}

// NewCachedResultSupplier builds a supplier. id must be unique among
// suppliers sharing the same PrefetchStrategy instance (it keys both the
// single-flight group and the strategy's per-supplier gates).
func NewCachedResultSupplier[T any](
	id string,
	refresh RefreshFunc[T],
	strategy PrefetchStrategy,
	policy StalePolicy,
	logger *slog.Logger,
) *CachedResultSupplier[T] {
	if logger == nil {
		logger = slog.Default()
	}

	return &CachedResultSupplier[T]{
		id:       id,
		refresh:  refresh,
		strategy: strategy,
		policy:   policy,
		logger:   logger,
	}
}

// Get returns the cached value, refreshing it synchronously (stale path),
// asynchronously (prefetch path), or not at all (fresh path) as required.
func (s *CachedResultSupplier[T]) Get(ctx context.Context) (T, error) {
	now := time.Now()

	entry := s.currentEntry()

	switch {
	case entry == nil || !now.Before(entry.StaleAt()):
		return s.getStale(ctx, entry)
	case !now.Before(entry.PrefetchAt()):
		s.triggerPrefetch()

		return entry.Value(), nil
	default:
		return entry.Value(), nil
	}
}

func (s *CachedResultSupplier[T]) currentEntry() *RefreshResult[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.entry
}

func (s *CachedResultSupplier[T]) store(entry *RefreshResult[T]) {
	s.mu.Lock()
	s.entry = entry
	s.mu.Unlock()
}

// triggerPrefetch hands a refresh off to the configured PrefetchStrategy.
// Failures are always swallowed (logged): the current value is still fresh.
func (s *CachedResultSupplier[T]) triggerPrefetch() {
	s.strategy.Prefetch(s.id, func() error {
		_, err := s.doRefresh(context.Background())

		return err
	}, defaultOnFailure(s.logger, s.id))
}

// getStale implements the blocking stale path: acquire the refresh (via
// single-flight, so concurrent callers share one physical refresh), bounded
// by BlockingRefreshMaxWait.
func (s *CachedResultSupplier[T]) getStale(ctx context.Context, staleEntry *RefreshResult[T]) (T, error) {
	var zero T

	ch := s.sf.DoChan(s.id, func() (any, error) {
		return s.doRefresh(ctx)
	})

	timer := time.NewTimer(BlockingRefreshMaxWait)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}

		value, _ := res.Val.(T)

		return value, nil
	case <-timer.C:
		if s.policy == AllowStalePolicy && staleEntry != nil {
			s.logger.Warn("refresh lock timed out, serving stale value", "id", s.id)

			return staleEntry.Value(), nil
		}

		return zero, &ConcurrentOperationError{Waited: BlockingRefreshMaxWait.String()}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// doRefresh is the single-flighted body: it re-checks the current entry
// (double-checked locking — another caller may have refreshed while this one
// was scheduled in), invokes the refresh function on a miss, applies the
// stale-value policy on failure, and stores the jittered result on success.
func (s *CachedResultSupplier[T]) doRefresh(ctx context.Context) (T, error) {
	var zero T

	now := time.Now()

	if entry := s.currentEntry(); entry != nil && now.Before(entry.StaleAt()) {
		return entry.Value(), nil
	}

	priorEntry := s.currentEntry()

	outcome, err := s.refresh(ctx)
	if err != nil {
		return s.handleRefreshFailure(priorEntry, err)
	}

	jitteredStale, jitteredPrefetch := applyJitter(outcome.Result.StaleAt(), outcome.Result.PrefetchAt(), outcome.ExpiresAt)
	final := outcome.Result.withJitteredTimings(jitteredPrefetch, jitteredStale)

	s.store(final)

	return final.Value(), nil
}

func (s *CachedResultSupplier[T]) handleRefreshFailure(priorEntry *RefreshResult[T], err error) (T, error) {
	var zero T

	if priorEntry == nil {
		return zero, &CacheError{Op: "refresh", Err: err}
	}

	if s.policy == StrictPolicy {
		return zero, &CacheError{Op: "refresh", Err: err}
	}

	s.logger.Warn("refresh failed, returning previous value", "id", s.id, "error", err)

	return priorEntry.Value(), nil
}
