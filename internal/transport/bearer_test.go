package transport_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/idaas-m2m-client/internal/transport"
)

type staticTokenSource string

func (s staticTokenSource) GetBearerToken(context.Context) (string, error) {
	return string(s), nil
}

type failingTokenSource struct{ err error }

func (f failingTokenSource) GetBearerToken(context.Context) (string, error) {
	return "", f.err
}

func TestBearerRoundTripper_SetsAuthorizationHeader(t *testing.T) {
	var gotAuth string

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	client := transport.Client(nil, staticTokenSource("tok-123"))

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, upstream.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestBearerRoundTripper_DoesNotMutateOriginalRequest(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	rt := transport.NewBearerRoundTripper(http.DefaultTransport, staticTokenSource("tok-abc"))

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, upstream.URL, nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestBearerRoundTripper_PropagatesTokenError(t *testing.T) {
	wantErr := errors.New("boom")
	rt := transport.NewBearerRoundTripper(http.DefaultTransport, failingTokenSource{err: wantErr})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://example.invalid", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}
