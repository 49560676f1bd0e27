package cache

import (
	"testing"
	"time"
)

func TestApplyJitter_BoundsAndOrdering(t *testing.T) {
	t.Parallel()

	now := time.Now()
	stale := now.Add(40 * time.Minute)
	prefetch := now.Add(30 * time.Minute)
	expiresAt := now.Add(time.Hour)

	for i := 0; i < 200; i++ {
		newStale, newPrefetch := applyJitter(stale, prefetch, expiresAt)

		if newPrefetch.After(newStale) {
			t.Fatalf("prefetch_at %v after stale_at %v", newPrefetch, newStale)
		}

		if newStale.After(expiresAt) {
			t.Fatalf("stale_at %v after expires_at %v", newStale, expiresAt)
		}

		staleOffset := newStale.Sub(stale)
		if staleOffset < 0 || staleOffset > jitterMax {
			t.Fatalf("stale jitter offset %v out of range", staleOffset)
		}
	}
}

func TestApplyJitter_ClipsShortLivedTokenToExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	stale := now.Add(5 * time.Minute)
	prefetch := now.Add(4 * time.Minute)
	expiresAt := now.Add(6 * time.Minute)

	newStale, newPrefetch := applyJitter(stale, prefetch, expiresAt)

	if newStale.After(expiresAt) {
		t.Fatalf("stale_at %v not clipped to expires_at %v", newStale, expiresAt)
	}

	if newPrefetch.After(newStale) {
		t.Fatalf("prefetch_at %v after clipped stale_at %v", newPrefetch, newStale)
	}
}

func TestRandomJitter_WithinBounds(t *testing.T) {
	t.Parallel()

	for i := 0; i < 500; i++ {
		d := randomJitter()
		if d < jitterMin || d > jitterMax {
			t.Fatalf("jitter %v outside [%v, %v]", d, jitterMin, jitterMax)
		}
	}
}
