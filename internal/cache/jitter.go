package cache

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// Jitter bounds. Peers that start together would otherwise refresh in
// lockstep and hammer the token endpoint at the same instant; adding an
// independent random offset to each timing point spreads that load.
const (
	jitterMin = 5 * time.Minute
	jitterMax = 10 * time.Minute
)

// applyJitter adds an independent uniform random offset in [jitterMin,
// jitterMax] to both staleAt and prefetchAt, then clips the result so that
// prefetchAt <= staleAt <= expiresAt. Clipping is required: unclipped jitter
// on a short-lived token could push stale_at past the token's real expiry,
// which the upstream source does not guard against but this implementation
// does.
func applyJitter(staleAt, prefetchAt, expiresAt time.Time) (newStale, newPrefetch time.Time) {
	newStale = staleAt.Add(randomJitter())
	newPrefetch = prefetchAt.Add(randomJitter())

	if newStale.After(expiresAt) {
		newStale = expiresAt
	}

	if newPrefetch.After(newStale) {
		newPrefetch = newStale
	}

	return newStale, newPrefetch
}

// randomJitter returns a cryptographically random duration uniformly
// distributed in [jitterMin, jitterMax].
func randomJitter() time.Duration {
	span := jitterMax - jitterMin

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the system RNG is broken; fall back to
		// the midpoint rather than panicking a refresh path.
		return jitterMin + span/2
	}

	n := binary.BigEndian.Uint64(buf[:])
	offset := time.Duration(n % uint64(span))

	return jitterMin + offset
}
