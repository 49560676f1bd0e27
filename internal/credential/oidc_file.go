package credential

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// oidcFileSkew is how far ahead of the cached token's exp claim a call must
// be before the file is re-read. Fixed per spec, not configurable.
const oidcFileSkew = 600 * time.Second

// FileOidcTokenProvider reads an OIDC JWT from a text file. To avoid
// re-reading on every call, it parses the cached token's exp claim on first
// read and only re-reads the file once now+oidcFileSkew reaches that exp.
type FileOidcTokenProvider struct {
	Path string

	mu       sync.Mutex
	token    string
	expireAt time.Time
}

// NewFileOidcTokenProvider constructs a provider reading from path.
func NewFileOidcTokenProvider(path string) *FileOidcTokenProvider {
	return &FileOidcTokenProvider{Path: path}
}

func (p *FileOidcTokenProvider) GetOidcToken(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Add(oidcFileSkew).Before(p.expireAt) {
		return p.token, nil
	}

	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return "", &CredentialError{Source: "OIDC", Err: fmt.Errorf("reading token file %s: %w", p.Path, err)}
	}

	token := strings.TrimSpace(string(raw))

	exp, err := parseJWTExpiry(token)
	if err != nil {
		return "", &EncodingError{What: "OIDC token file contents", Err: err}
	}

	p.token = token
	p.expireAt = exp

	return p.token, nil
}

// parseJWTExpiry extracts the exp claim from a JWT without verifying its
// signature; the file is trusted by virtue of being readable only by this
// process's owner (signature verification is the relying party's job).
func parseJWTExpiry(token string) (time.Time, error) {
	parser := jwt.NewParser()

	claims := jwt.RegisteredClaims{}

	_, _, err := parser.ParseUnverified(token, &claims)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing OIDC token: %w", err)
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("OIDC token has no exp claim")
	}

	return claims.ExpiresAt.Time, nil
}
