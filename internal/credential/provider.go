package credential

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jsamuelsen/idaas-m2m-client/internal/cache"
	"github.com/jsamuelsen/idaas-m2m-client/internal/metrics"
)

// CredentialProvider is the public entry point of this package: configured
// once with a ClientConfig and the auth material it needs, it keeps a bearer
// token warm behind a CachedResultSupplier and hands it out on demand.
type CredentialProvider struct {
	cfg        *ClientConfig
	httpClient *http.Client
	supplier   *cache.CachedResultSupplier[TokenResponse]
}

// NewCredentialProvider rejects a nil cfg, fills cfg's default timeouts, and
// wires up the cache around the supplied materials; it does not run field
// validation on cfg. httpClient may be nil to use a client built from cfg's
// timeouts.
func NewCredentialProvider(cfg *ClientConfig, materials Materials, httpClient *http.Client, logger *slog.Logger) (*CredentialProvider, error) {
	if cfg == nil {
		return nil, &ConfigError{Field: "cfg", Err: fmt.Errorf("nil ClientConfig")}
	}

	cfg.ApplyDefaults()

	if httpClient == nil {
		httpClient = newHTTPClient(cfg)
	}

	if logger == nil {
		logger = slog.Default()
	}

	p := &CredentialProvider{cfg: cfg, httpClient: httpClient}

	strategy, err := prefetchStrategyFor(cfg.PrefetchStrategy)
	if err != nil {
		return nil, err
	}

	supplierID := "idaas-credential:" + cfg.ClientID

	refreshFn := func(ctx context.Context) (*cache.RefreshOutcome[TokenResponse], error) {
		start := time.Now()

		tok, expiresAt, err := fetchToken(ctx, p.httpClient, p.cfg, materials)

		metrics.CacheRefreshDuration.WithLabelValues(supplierID).Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.CacheRefreshTotal.WithLabelValues(supplierID, "failure").Inc()

			return nil, err
		}

		metrics.CacheRefreshTotal.WithLabelValues(supplierID, "success").Inc()

		issuedAt := tok.ExpiresAt.Add(-durationFromSeconds(tok.ExpiresIn))
		result := cache.NewRefreshResultFromExpiry(*tok, issuedAt, expiresAt, durationFromSeconds(tok.ExpiresIn))

		return &cache.RefreshOutcome[TokenResponse]{Result: result, ExpiresAt: expiresAt}, nil
	}

	p.supplier = cache.NewCachedResultSupplier(
		supplierID,
		refreshFn,
		strategy,
		cfg.EffectiveStalePolicy(),
		logger,
	)

	return p, nil
}

// GetCredential returns the current (possibly freshly refreshed) token
// response.
func (p *CredentialProvider) GetCredential(ctx context.Context) (TokenResponse, error) {
	return p.supplier.Get(ctx)
}

// GetBearerToken is a convenience wrapper returning just the access token
// string, for callers that only need the value to set an Authorization
// header.
func (p *CredentialProvider) GetBearerToken(ctx context.Context) (string, error) {
	tok, err := p.GetCredential(ctx)
	if err != nil {
		return "", err
	}

	return tok.AccessToken, nil
}

func prefetchStrategyFor(name string) (cache.PrefetchStrategy, error) {
	switch name {
	case "", "one-caller-blocks":
		return cache.NewOneCallerBlocksPrefetchStrategy(), nil
	case "non-blocking":
		return cache.NewNonBlockingPrefetchStrategy(), nil
	default:
		return nil, &ConfigError{Field: "prefetch_strategy", Err: fmt.Errorf("unknown strategy %q", name)}
	}
}
