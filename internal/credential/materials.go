package credential

import "context"

// JwtClientAssertionProvider supplies a signed JWT client assertion for
// CLIENT_SECRET_JWT / PRIVATE_KEY_JWT / PCA. Implementations regenerate the
// assertion on every call so iat/exp/jti stay fresh.
type JwtClientAssertionProvider interface {
	GetClientAssertion(ctx context.Context) (assertion string, err error)
}

// OidcTokenProvider supplies a JWT OIDC token for the OIDC method.
type OidcTokenProvider interface {
	GetOidcToken(ctx context.Context) (token string, err error)
}

// Pkcs7Provider supplies a PKCS7-signed attested document for the PKCS7
// method.
type Pkcs7Provider interface {
	GetPkcs7Document(ctx context.Context) (document string, err error)
}

// CertificateChainProvider supplies a PEM-encoded X.509 certificate chain
// for the PCA method.
type CertificateChainProvider interface {
	GetCertificateChain(ctx context.Context) (chainPEM string, err error)
}

// StaticPkcs7 is a trivial Pkcs7Provider holding a fixed document, useful in
// tests and for callers that source the document themselves.
type StaticPkcs7 string

func (s StaticPkcs7) GetPkcs7Document(context.Context) (string, error) { return string(s), nil }

// StaticOidcToken is a trivial OidcTokenProvider holding a fixed token.
type StaticOidcToken string

func (s StaticOidcToken) GetOidcToken(context.Context) (string, error) { return string(s), nil }

// StaticCertificateChain is a trivial CertificateChainProvider holding a
// fixed PEM chain.
type StaticCertificateChain string

func (s StaticCertificateChain) GetCertificateChain(context.Context) (string, error) {
	return string(s), nil
}
