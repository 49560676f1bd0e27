package cache_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/idaas-m2m-client/internal/cache"
)

var errRefreshFailed = errors.New("refresh failed")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func outcomeWithTTL(value string, ttl time.Duration) *cache.RefreshOutcome[string] {
	now := time.Now()
	expiresAt := now.Add(ttl)
	result := cache.NewRefreshResultFromExpiry(value, now, expiresAt, ttl)

	return &cache.RefreshOutcome[string]{Result: result, ExpiresAt: expiresAt}
}

func TestCachedResultSupplier_FreshPathServesCachedValueWithoutRefresh(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	refresh := func(_ context.Context) (*cache.RefreshOutcome[string], error) {
		calls.Add(1)

		return outcomeWithTTL("T1", time.Hour), nil
	}

	s := cache.NewCachedResultSupplier("sup", refresh, cache.NewOneCallerBlocksPrefetchStrategy(), cache.StrictPolicy, discardLogger())

	v1, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", v1)

	v2, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", v2)

	assert.Equal(t, int32(1), calls.Load())
}

func TestCachedResultSupplier_StalePathBlocksUntilRefreshCompletes(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	refresh := func(_ context.Context) (*cache.RefreshOutcome[string], error) {
		n := calls.Add(1)
		if n == 1 {
			return outcomeWithTTL("T1", 10*time.Millisecond), nil
		}

		return outcomeWithTTL("T2", time.Hour), nil
	}

	s := cache.NewCachedResultSupplier("sup", refresh, cache.NewOneCallerBlocksPrefetchStrategy(), cache.StrictPolicy, discardLogger())

	v1, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", v1)

	// Tokens with a 10ms TTL collapse stale_at/prefetch_at to the floor "now",
	// and jitter is clipped to the expiry 10ms later; waiting past that point
	// moves us onto the stale path.
	time.Sleep(20 * time.Millisecond)

	v2, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T2", v2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedResultSupplier_ConcurrentStaleReadsShareOneRefresh(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	release := make(chan struct{})

	refresh := func(_ context.Context) (*cache.RefreshOutcome[string], error) {
		calls.Add(1)
		<-release

		return outcomeWithTTL("T2", time.Hour), nil
	}

	s := cache.NewCachedResultSupplier("sup", refresh, cache.NewOneCallerBlocksPrefetchStrategy(), cache.StrictPolicy, discardLogger())

	const n = 10

	var wg sync.WaitGroup

	results := make([]string, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			results[idx], errs[idx] = s.Get(context.Background())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "T2", results[i])
	}

	assert.Equal(t, int32(1), calls.Load())
}

func TestCachedResultSupplier_StrictPolicySurfacesCacheErrorWithNoPrior(t *testing.T) {
	t.Parallel()

	refresh := func(_ context.Context) (*cache.RefreshOutcome[string], error) {
		return nil, errRefreshFailed
	}

	s := cache.NewCachedResultSupplier("sup", refresh, cache.NewOneCallerBlocksPrefetchStrategy(), cache.StrictPolicy, discardLogger())

	_, err := s.Get(context.Background())
	require.Error(t, err)

	var cacheErr *cache.CacheError

	require.ErrorAs(t, err, &cacheErr)
	assert.ErrorIs(t, err, errRefreshFailed)
}

func TestCachedResultSupplier_AllowPolicyWithNoPriorStillFails(t *testing.T) {
	t.Parallel()

	refresh := func(_ context.Context) (*cache.RefreshOutcome[string], error) {
		return nil, errRefreshFailed
	}

	s := cache.NewCachedResultSupplier("sup", refresh, cache.NewOneCallerBlocksPrefetchStrategy(), cache.AllowStalePolicy, discardLogger())

	_, err := s.Get(context.Background())
	require.Error(t, err)
}

func TestCachedResultSupplier_AllowPolicyReturnsPriorOnSubsequentFailure(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool

	refresh := func(_ context.Context) (*cache.RefreshOutcome[string], error) {
		if fail.Load() {
			return nil, errRefreshFailed
		}

		return outcomeWithTTL("T1", 10*time.Millisecond), nil
	}

	s := cache.NewCachedResultSupplier("sup", refresh, cache.NewOneCallerBlocksPrefetchStrategy(), cache.AllowStalePolicy, discardLogger())

	v1, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", v1)

	fail.Store(true)
	time.Sleep(20 * time.Millisecond)

	v2, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T1", v2)
}

func TestCachedResultSupplier_FirstGetOnEmptyCacheRunsRefresh(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	refreshed := make(chan struct{}, 1)

	refresh := func(_ context.Context) (*cache.RefreshOutcome[string], error) {
		n := calls.Add(1)
		if n > 1 {
			refreshed <- struct{}{}
		}

		return outcomeWithTTL("T2", time.Hour), nil
	}

	s := cache.NewCachedResultSupplier("sup", refresh, cache.NewOneCallerBlocksPrefetchStrategy(), cache.StrictPolicy, discardLogger())

	// The prefetch window is not reachable in real time here: jitter moves
	// prefetch_at at least 5 minutes later (clipped to stale_at), so this test
	// only checks that the first Get on an empty cache runs the refresh. No
	// second refresh happens, so the select below falls through after 2s.
	_, err := s.Get(context.Background())
	require.NoError(t, err)

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
	}

	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestCachedResultSupplier_LockTimeoutReturnsConcurrentOperationError(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})

	refresh := func(_ context.Context) (*cache.RefreshOutcome[string], error) {
		<-block

		return outcomeWithTTL("T1", time.Hour), nil
	}

	s := cache.NewCachedResultSupplier("sup", refresh, cache.NewOneCallerBlocksPrefetchStrategy(), cache.StrictPolicy, discardLogger())

	done := make(chan error, 1)

	go func() {
		_, err := s.Get(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		var concErr *cache.ConcurrentOperationError

		require.ErrorAs(t, err, &concErr)
	case <-time.After(cache.BlockingRefreshMaxWait + 2*time.Second):
		t.Fatal("timed out waiting for lock-timeout error")
	}

	close(block)
}
