package credential

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jsamuelsen/idaas-m2m-client/internal/cache"
)

const (
	alibabaMetadataTokenURL = "http://100.100.100.200/latest/api/token"
	alibabaPkcs7URL         = "http://100.100.100.200/latest/dynamic/instance-identity/pkcs7"
	alibabaTokenTTLHeader   = "X-aliyun-ecs-metadata-token-ttl-seconds"
	alibabaTokenHeader      = "X-aliyun-ecs-metadata-token"
	alibabaTokenTTL         = "21600"
	alibabaDocumentLifetime = time.Hour
)

// AlibabaCloudEcsAttestedDocumentProvider sources a PKCS7 attested document
// from Alibaba Cloud's ECS instance metadata service, using IMDSv2-style
// semantics (fetch a session token via PUT, then GET the document with that
// token, retrying once on 401). The document is itself cached and refreshed
// through a CachedResultSupplier since fetching it is a network round trip
// and the document is valid for a full hour.
type AlibabaCloudEcsAttestedDocumentProvider struct {
	httpClient *http.Client
	supplier   *cache.CachedResultSupplier[string]

	// tokenURL/documentURL default to the real Alibaba ECS metadata endpoints;
	// overridable so tests can point the provider at a fake server.
	tokenURL    string
	documentURL string
}

// NewAlibabaCloudEcsAttestedDocumentProvider builds a provider backed by its
// own cache; httpClient may be nil to use http.DefaultClient (tests inject a
// client pointed at a fake metadata server).
func NewAlibabaCloudEcsAttestedDocumentProvider(httpClient *http.Client, strategy cache.PrefetchStrategy) *AlibabaCloudEcsAttestedDocumentProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	p := &AlibabaCloudEcsAttestedDocumentProvider{
		httpClient:  httpClient,
		tokenURL:    alibabaMetadataTokenURL,
		documentURL: alibabaPkcs7URL,
	}

	p.supplier = cache.NewCachedResultSupplier(
		"alibaba-ecs-pkcs7",
		p.refresh,
		strategy,
		cache.StrictPolicy,
		slog.Default(),
	)

	return p
}

func (p *AlibabaCloudEcsAttestedDocumentProvider) GetPkcs7Document(ctx context.Context) (string, error) {
	return p.supplier.Get(ctx)
}

func (p *AlibabaCloudEcsAttestedDocumentProvider) refresh(ctx context.Context) (*cache.RefreshOutcome[string], error) {
	token, err := p.fetchSessionToken(ctx)
	if err != nil {
		return nil, err
	}

	doc, retryErr := p.fetchDocument(ctx, token)
	if retryErr != nil && isUnauthorized(retryErr) {
		token, err = p.fetchSessionToken(ctx)
		if err != nil {
			return nil, err
		}

		doc, retryErr = p.fetchDocument(ctx, token)
	}

	if retryErr != nil {
		return nil, retryErr
	}

	now := time.Now()
	expiresAt := now.Add(alibabaDocumentLifetime)
	result := cache.NewRefreshResultFromExpiry(doc, now, expiresAt, alibabaDocumentLifetime)

	return &cache.RefreshOutcome[string]{Result: result, ExpiresAt: expiresAt}, nil
}

type unauthorizedError struct{ status int }

func (e *unauthorizedError) Error() string { return fmt.Sprintf("metadata service returned %d", e.status) }

func isUnauthorized(err error) bool {
	var ue *unauthorizedError

	return errors.As(err, &ue)
}

func (p *AlibabaCloudEcsAttestedDocumentProvider) fetchSessionToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.tokenURL, nil)
	if err != nil {
		return "", &HTTPError{Code: "request-build", Err: err}
	}

	req.Header.Set(alibabaTokenTTLHeader, alibabaTokenTTL)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &HTTPError{Code: "transport", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &HTTPError{Code: "read-body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &unauthorizedError{status: resp.StatusCode}
	}

	return string(body), nil
}

func (p *AlibabaCloudEcsAttestedDocumentProvider) fetchDocument(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.documentURL, nil)
	if err != nil {
		return "", &HTTPError{Code: "request-build", Err: err}
	}

	req.Header.Set(alibabaTokenHeader, token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &HTTPError{Code: "transport", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &HTTPError{Code: "read-body", Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return "", &unauthorizedError{status: resp.StatusCode}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{Code: "unexpected-status", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	return string(body), nil
}
