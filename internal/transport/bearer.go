// Package transport provides an http.RoundTripper that injects a bearer
// token from a credential.CredentialProvider into outbound requests, the
// mirror image of the teacher's inbound bearer-token middleware.
package transport

import (
	"context"
	"fmt"
	"net/http"
)

// TokenSource is satisfied by *credential.CredentialProvider. Defined here
// rather than imported to keep this package free of a hard dependency on
// internal/credential; any cached-token source can drive a BearerRoundTripper.
type TokenSource interface {
	GetBearerToken(ctx context.Context) (string, error)
}

// BearerRoundTripper wraps a base http.RoundTripper (http.DefaultTransport
// if nil) and sets "Authorization: Bearer <token>" on every outbound
// request from a TokenSource, fetching once per request (cheap: the
// CredentialProvider itself only does network I/O on a cache miss).
type BearerRoundTripper struct {
	Base   http.RoundTripper
	Tokens TokenSource
}

// NewBearerRoundTripper builds a BearerRoundTripper. base may be nil to use
// http.DefaultTransport.
func NewBearerRoundTripper(base http.RoundTripper, tokens TokenSource) *BearerRoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	return &BearerRoundTripper{Base: base, Tokens: tokens}
}

// RoundTrip implements http.RoundTripper. Per http.RoundTripper's contract
// it must not mutate the caller's original request, so the Authorization
// header is set on a shallow clone.
func (rt *BearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := rt.Tokens.GetBearerToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("transport: obtaining bearer token: %w", err)
	}

	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+token)

	return rt.Base.RoundTrip(cloned)
}

// Client builds an *http.Client whose Transport injects the bearer token
// from tokens into every outbound request.
func Client(base http.RoundTripper, tokens TokenSource) *http.Client {
	return &http.Client{Transport: NewBearerRoundTripper(base, tokens)}
}
