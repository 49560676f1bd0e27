package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jsamuelsen/idaas-m2m-client/internal/metrics"
)

// newHTTPClient builds the shared *http.Client used for token requests, with
// a single overall request timeout of cfg.ConnectTimeout + cfg.ReadTimeout
// (no separate connect or read deadline). TLS verification is always on:
// cfg.SSLVerify is not read here, and setting it to false has no effect.
func newHTTPClient(cfg *ClientConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.ConnectTimeout + cfg.ReadTimeout,
	}
}

// executeTokenRequest POSTs req and maps the response into a TokenResponse
// or one of ClientError/ServerError/HTTPError/EncodingError.
func executeTokenRequest(httpClient *http.Client, req *http.Request) (*TokenResponse, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &HTTPError{Code: "transport", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &HTTPError{Code: "read-body", Err: err}
	}

	receivedAt := time.Now()
	requestID := resp.Header.Get("X-Request-Id")

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var tok TokenResponse

		if err := json.Unmarshal(body, &tok); err != nil {
			return nil, &EncodingError{What: "token response body", Err: err}
		}

		if tok.AccessToken == "" {
			return nil, &EncodingError{What: "token response body", Err: fmt.Errorf("missing access_token")}
		}

		tok.normalizeExpiresAt(receivedAt)

		return &tok, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, parseClientError(resp.StatusCode, requestID, body)

	case resp.StatusCode >= 500:
		return nil, &ServerError{StatusCode: resp.StatusCode, RequestID: requestID, Body: string(body)}

	default:
		return nil, &HTTPError{Code: "unexpected-status", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
}

//nolint:tagliatelle // mirrors RFC 6749 error response field names
type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func parseClientError(statusCode int, requestID string, body []byte) *ClientError {
	var parsed oauthErrorBody

	_ = json.Unmarshal(body, &parsed)

	return &ClientError{
		StatusCode:     statusCode,
		OAuthErrorCode: parsed.Error,
		Description:    parsed.ErrorDescription,
		RequestID:      requestID,
	}
}

// fetchToken performs one token fetch for a CredentialProvider's refresh
// function: it builds the request for the configured method, executes it,
// and returns the token together with its expires_at, which the caller uses
// to build the RefreshResult and bound its jittered timings.
func fetchToken(ctx context.Context, httpClient *http.Client, cfg *ClientConfig, materials Materials) (*TokenResponse, time.Time, error) {
	method := string(cfg.Auth.Method)

	req, err := buildTokenRequest(ctx, cfg, materials)
	if err != nil {
		metrics.TokenRequestsTotal.WithLabelValues(method, "request_build_error").Inc()

		return nil, time.Time{}, err
	}

	tok, err := executeTokenRequest(httpClient, req)
	if err != nil {
		metrics.TokenRequestsTotal.WithLabelValues(method, requestOutcome(err)).Inc()

		return nil, time.Time{}, err
	}

	metrics.TokenRequestsTotal.WithLabelValues(method, "success").Inc()

	return tok, tok.ExpiresAt, nil
}

func requestOutcome(err error) string {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return "client_error"
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return "server_error"
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return "transport_error"
	}

	return "encoding_error"
}

func durationFromSeconds(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
