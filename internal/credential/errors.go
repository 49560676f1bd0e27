package credential

import (
	"errors"
	"fmt"
)

// Sentinel errors. Each concrete error type below unwraps to one of these, so
// callers can errors.Is/As against either the sentinel or the concrete type.
var (
	ErrConfig      = errors.New("credential: invalid configuration")
	ErrCredential  = errors.New("credential: auth material unobtainable")
	ErrEncoding    = errors.New("credential: malformed PEM or token")
	ErrHTTP        = errors.New("credential: transport failure")
	ErrClient      = errors.New("credential: client error response")
	ErrServer      = errors.New("credential: server error response")
	ErrNotImplemented = errors.New("credential: method not implemented")
)

// ConfigError wraps a missing/invalid configuration field.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("credential: config field %q: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// CredentialError wraps a failure to obtain auth material (an empty/missing
// env var, an unreadable OIDC token file, a metadata-service failure).
type CredentialError struct {
	Source string
	Err    error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential: %s: %v", e.Source, e.Err)
}

func (e *CredentialError) Unwrap() error { return errors.Join(ErrCredential, e.Err) }

// EncodingError wraps a malformed PEM key or unparseable JWT.
type EncodingError struct {
	What string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("credential: malformed %s: %v", e.What, e.Err)
}

func (e *EncodingError) Unwrap() error { return errors.Join(ErrEncoding, e.Err) }

// HTTPError wraps a transport failure/timeout reaching the token endpoint.
type HTTPError struct {
	Code string
	Err  error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("credential: http error (%s): %v", e.Code, e.Err)
}

func (e *HTTPError) Unwrap() error { return errors.Join(ErrHTTP, e.Err) }

// ClientError represents a 4xx OAuth2 error response.
type ClientError struct {
	StatusCode       int
	OAuthErrorCode   string
	Description      string
	RequestID        string
}

func (e *ClientError) Error() string {
	msg := fmt.Sprintf("credential: client error %d: %s", e.StatusCode, e.OAuthErrorCode)
	if e.Description != "" {
		msg += ": " + e.Description
	}

	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request-id %s)", e.RequestID)
	}

	return msg
}

func (e *ClientError) Unwrap() error { return ErrClient }

// ServerError represents a 5xx response from the token endpoint.
type ServerError struct {
	StatusCode int
	RequestID  string
	Body       string
}

func (e *ServerError) Error() string {
	msg := fmt.Sprintf("credential: server error %d", e.StatusCode)
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request-id %s)", e.RequestID)
	}

	return msg
}

func (e *ServerError) Unwrap() error { return ErrServer }

// NotImplementedError is raised by variants that are intentionally left as
// placeholders (AWS EC2 PKCS7 attestation).
type NotImplementedError struct {
	What string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("credential: %s is not implemented", e.What)
}

func (e *NotImplementedError) Unwrap() error { return ErrNotImplemented }
