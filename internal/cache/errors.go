package cache

import "errors"

// StalePolicy controls how the supplier behaves when a refresh fails and a
// previous value is available.
type StalePolicy int

const (
	// StrictPolicy surfaces a CacheError whenever a refresh fails, even if a
	// previous value could still be returned.
	StrictPolicy StalePolicy = iota
	// AllowStalePolicy returns the previous value (with a logged warning) when
	// a refresh fails and a previous value exists. With no previous value the
	// error is always surfaced regardless of policy.
	AllowStalePolicy
)

// Sentinel errors for the cache package. Wrap these with fmt.Errorf("%w: ...")
// so callers can still errors.Is/As against the sentinel.
var (
	// ErrCache indicates a refresh failed under a policy that requires the
	// failure to be surfaced (STRICT, or ALLOW with no prior value).
	ErrCache = errors.New("cache: refresh failed")
	// ErrConcurrentOperation indicates a caller timed out waiting to acquire
	// the refresh lock (BLOCKING_REFRESH_MAX_WAIT elapsed) and no usable
	// prior value exists to fall back to.
	ErrConcurrentOperation = errors.New("cache: concurrent refresh did not complete in time")
)

// CacheError wraps a refresh failure that must be surfaced to the caller.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	if e.Op == "" {
		return "cache: " + e.Err.Error()
	}

	return "cache: " + e.Op + ": " + e.Err.Error()
}

func (e *CacheError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrCache) to succeed for any *CacheError.
func (e *CacheError) Is(target error) bool {
	return target == ErrCache //nolint:errorlint // sentinel identity check by design
}

// ConcurrentOperationError is returned when the refresh lock could not be
// acquired within BlockingRefreshMaxWait and there is no usable stale value.
type ConcurrentOperationError struct {
	Waited string
}

func (e *ConcurrentOperationError) Error() string {
	return "cache: timed out after " + e.Waited + " waiting for in-flight refresh"
}

func (e *ConcurrentOperationError) Is(target error) bool {
	return target == ErrConcurrentOperation //nolint:errorlint // sentinel identity check by design
}
