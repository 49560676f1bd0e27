// Package cache implements a generic time-triggered cache with prefetch and
// jittered refresh timings, modeled on the double-checked-locking refresh
// path of a token manager but generalized to any value type and made safe
// for unbounded concurrent callers.
package cache

import (
	"errors"
	"time"
)

// ErrInvalidTiming is returned by NewRefreshResult when prefetchAt is after
// staleAt.
var ErrInvalidTiming = errors.New("cache: prefetch_at must not be after stale_at")

// minTTLForFullTiming is the expires_in threshold below which stale/prefetch
// collapse to a single point just before expiry instead of the 4/5 and 2/3
// fractions (see NewRefreshResultFromExpiry).
const minTTLForFullTiming = 15 * time.Second

// collapsedLeadTime is how far before expiry the collapsed stale/prefetch
// point sits for very short-lived values.
const collapsedLeadTime = 1 * time.Second

// RefreshResult is an immutable (value, stale-at, prefetch-at) triple. Once
// constructed it is never mutated; a supplier replaces its held
// *RefreshResult wholesale on every successful refresh.
type RefreshResult[T any] struct {
	value     T
	staleAt   time.Time
	prefetchAt time.Time
}

// NewRefreshResult builds a RefreshResult, enforcing prefetchAt <= staleAt.
func NewRefreshResult[T any](value T, prefetchAt, staleAt time.Time) (*RefreshResult[T], error) {
	if prefetchAt.After(staleAt) {
		return nil, ErrInvalidTiming
	}

	return &RefreshResult[T]{value: value, staleAt: staleAt, prefetchAt: prefetchAt}, nil
}

// NewRefreshResultFromExpiry computes stale_at and prefetch_at from an
// absolute expiry instant and the lifetime used to reach it, per the timing
// rules: stale at 4/5 of lifetime, prefetch at 2/3 of lifetime, collapsing to
// max(now, expiresAt-1s) when the lifetime is under 15s. now is the instant
// the value was obtained (used as the lifetime's start and as the floor for
// the collapsed case).
func NewRefreshResultFromExpiry[T any](value T, now, expiresAt time.Time, ttl time.Duration) *RefreshResult[T] {
	var staleAt, prefetchAt time.Time

	if ttl < minTTLForFullTiming {
		collapsed := expiresAt.Add(-collapsedLeadTime)
		if collapsed.Before(now) {
			collapsed = now
		}

		staleAt = collapsed
		prefetchAt = collapsed
	} else {
		staleAt = expiresAt.Add(-ttl / 5)     //nolint:mnd // spec: stale at 4/5 of lifetime
		prefetchAt = expiresAt.Add(-ttl / 3)  //nolint:mnd // spec: prefetch at 2/3 of lifetime
	}

	return &RefreshResult[T]{value: value, staleAt: staleAt, prefetchAt: prefetchAt}
}

// Value returns the cached value.
func (r *RefreshResult[T]) Value() T { return r.value }

// StaleAt returns the instant after which the value is considered stale.
func (r *RefreshResult[T]) StaleAt() time.Time { return r.staleAt }

// PrefetchAt returns the instant after which reads trigger a background
// (or synchronous, depending on strategy) refresh while still returning the
// current value.
func (r *RefreshResult[T]) PrefetchAt() time.Time { return r.prefetchAt }

// withJitteredTimings returns a copy of r with stale/prefetch replaced,
// preserving the same value.
func (r *RefreshResult[T]) withJitteredTimings(prefetchAt, staleAt time.Time) *RefreshResult[T] {
	return &RefreshResult[T]{value: r.value, staleAt: staleAt, prefetchAt: prefetchAt}
}
