package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// nonBlockingWorkerCapacity bounds the number of prefetch refreshes that may
// be in flight at once across every supplier sharing a NonBlockingPrefetchStrategy.
const nonBlockingWorkerCapacity = 100

// PrefetchStrategy is invoked by a CachedResultSupplier when a caller reads
// during the [prefetch_at, stale_at) window. Implementations must be safe
// for concurrent use and must not block the calling goroutine longer than
// necessary to hand the refresh off.
type PrefetchStrategy interface {
	// Prefetch triggers refresh for the supplier identified by key. onFailure
	// is invoked (never with a panic) if refresh returns an error; prefetch
	// failures are always swallowed by the cache because the held value is
	// still fresh.
	Prefetch(key string, refresh func() error, onFailure func(error))
}

// OneCallerBlocksPrefetchStrategy lets at most one caller per supplier run
// the refresh, synchronously, on its own goroutine; every other concurrent
// caller observes the gate already held and returns immediately without
// triggering a second refresh.
type OneCallerBlocksPrefetchStrategy struct {
	mu    sync.Mutex
	gates map[string]*atomic.Bool
}

// NewOneCallerBlocksPrefetchStrategy constructs a ready-to-use strategy.
func NewOneCallerBlocksPrefetchStrategy() *OneCallerBlocksPrefetchStrategy {
	return &OneCallerBlocksPrefetchStrategy{gates: make(map[string]*atomic.Bool)}
}

func (s *OneCallerBlocksPrefetchStrategy) gateFor(key string) *atomic.Bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gates[key]
	if !ok {
		g = &atomic.Bool{}
		s.gates[key] = g
	}

	return g
}

// Prefetch runs refresh synchronously on the caller's goroutine if and only
// if it wins the non-blocking CAS acquire; otherwise it returns immediately.
func (s *OneCallerBlocksPrefetchStrategy) Prefetch(key string, refresh func() error, onFailure func(error)) {
	gate := s.gateFor(key)
	if !gate.CompareAndSwap(false, true) {
		return
	}

	defer gate.Store(false)

	if err := refresh(); err != nil {
		onFailure(err)
	}
}

// NonBlockingPrefetchStrategy hands refreshes off to a single dedicated
// background worker shared by every supplier using this strategy instance,
// bounded by a fixed-capacity semaphore so a storm of prefetch-eligible
// reads cannot spawn unbounded goroutines. Duplicate submissions for the
// same supplier while one is in flight are rejected.
type NonBlockingPrefetchStrategy struct {
	tasks    chan prefetchTask
	sem      chan struct{}
	once     sync.Once
	mu       sync.Mutex
	inFlight map[string]*atomic.Bool
}

type prefetchTask struct {
	key       string
	refresh   func() error
	onFailure func(error)
	inFlight  *atomic.Bool
}

// NewNonBlockingPrefetchStrategy constructs a strategy and starts its single
// background worker.
func NewNonBlockingPrefetchStrategy() *NonBlockingPrefetchStrategy {
	s := &NonBlockingPrefetchStrategy{
		tasks:    make(chan prefetchTask, nonBlockingWorkerCapacity),
		sem:      make(chan struct{}, nonBlockingWorkerCapacity),
		inFlight: make(map[string]*atomic.Bool),
	}
	s.once.Do(func() { go s.run() })

	return s
}

func (s *NonBlockingPrefetchStrategy) flagFor(key string) *atomic.Bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.inFlight[key]
	if !ok {
		f = &atomic.Bool{}
		s.inFlight[key] = f
	}

	return f
}

// Prefetch never blocks the caller: it either enqueues the refresh for the
// background worker or, if one is already in flight for this key or the
// shared queue is full, drops the request silently (the cached value is
// still fresh, so dropping costs nothing but a slightly longer wait until
// the next prefetch-eligible read tries again).
func (s *NonBlockingPrefetchStrategy) Prefetch(key string, refresh func() error, onFailure func(error)) {
	flag := s.flagFor(key)
	if !flag.CompareAndSwap(false, true) {
		return
	}

	task := prefetchTask{key: key, refresh: refresh, onFailure: onFailure, inFlight: flag}

	select {
	case s.tasks <- task:
	default:
		flag.Store(false)
	}
}

func (s *NonBlockingPrefetchStrategy) run() {
	for task := range s.tasks {
		s.sem <- struct{}{}

		func(t prefetchTask) {
			defer func() { <-s.sem }()
			defer t.inFlight.Store(false)

			if err := t.refresh(); err != nil {
				t.onFailure(err)
			}
		}(task)
	}
}

// defaultOnFailure is the logging sink used when a caller does not supply
// its own failure callback.
func defaultOnFailure(logger *slog.Logger, key string) func(error) {
	return func(err error) {
		logger.Warn("prefetch refresh failed", "key", key, "error", err)
	}
}
