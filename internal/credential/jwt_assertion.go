package credential

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jsamuelsen/idaas-m2m-client/internal/metrics"
)

// assertionLifetime is the fixed lifetime of a client assertion JWT
// (exp - iat == 300s, per RFC 7523 usage here).
const assertionLifetime = 300 * time.Second

// assertionClaims is the claim set common to every client assertion
// variant: iss == sub == client_id, aud == token_endpoint, a fresh jti, and
// a 300s lifetime from the moment of signing.
//
//nolint:tagliatelle // JWT claim names are fixed by RFC 7519/7523
type assertionClaims struct {
	jwt.RegisteredClaims
}

func newAssertionClaims(clientID, audience string, now time.Time) assertionClaims {
	nonce := uuid.New()

	return assertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    clientID,
			Subject:   clientID,
			Audience:  jwt.ClaimStrings{audience},
			ID:        nonce.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		},
	}
}

// StaticClientSecretAssertion builds an HS256 client assertion from a
// client secret read at refresh time from the named environment variable.
// It regenerates iat/exp/jti on every call so the assertion never goes
// stale between refreshes.
type StaticClientSecretAssertion struct {
	ClientID        string
	Audience        string
	SecretEnvVar    string
}

func (p *StaticClientSecretAssertion) GetClientAssertion(_ context.Context) (string, error) {
	secret := os.Getenv(p.SecretEnvVar)
	if secret == "" {
		return "", &CredentialError{Source: "CLIENT_SECRET_JWT", Err: fmt.Errorf("%s is empty", p.SecretEnvVar)}
	}

	claims := newAssertionClaims(p.ClientID, p.Audience, time.Now())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", &EncodingError{What: "HS256 client assertion", Err: err}
	}

	metrics.JwtAssertionsTotal.WithLabelValues(jwt.SigningMethodHS256.Name).Inc()

	return signed, nil
}

// StaticPrivateKeyAssertion builds an RS256 or ES256 client assertion from a
// PEM-encoded private key read at refresh time from the named environment
// variable. The signing algorithm is picked from the key type.
type StaticPrivateKeyAssertion struct {
	ClientID     string
	Audience     string
	KeyEnvVar    string
}

func (p *StaticPrivateKeyAssertion) GetClientAssertion(_ context.Context) (string, error) {
	pemData := os.Getenv(p.KeyEnvVar)
	if pemData == "" {
		return "", &CredentialError{Source: "PRIVATE_KEY_JWT", Err: fmt.Errorf("%s is empty", p.KeyEnvVar)}
	}

	claims := newAssertionClaims(p.ClientID, p.Audience, time.Now())

	return signWithPEMKey([]byte(pemData), claims)
}

// signWithPEMKey parses a PEM private key, picks RS256 or ES256 based on its
// type, and returns the signed compact JWS.
func signWithPEMKey(pemData []byte, claims assertionClaims) (string, error) {
	if rsaKey, err := jwt.ParseRSAPrivateKeyFromPEM(pemData); err == nil {
		return signClaims(jwt.SigningMethodRS256, rsaKey, claims)
	}

	if ecKey, err := jwt.ParseECPrivateKeyFromPEM(pemData); err == nil {
		return signClaims(jwt.SigningMethodES256, ecKey, claims)
	}

	return "", &EncodingError{What: "private key PEM", Err: fmt.Errorf("not a recognized RSA or EC private key")}
}

func signClaims(method jwt.SigningMethod, key any, claims assertionClaims) (string, error) {
	token := jwt.NewWithClaims(method, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", &EncodingError{What: "private-key client assertion", Err: err}
	}

	metrics.JwtAssertionsTotal.WithLabelValues(method.Alg()).Inc()

	return signed, nil
}
