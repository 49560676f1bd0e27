// Package credential implements the OAuth2/OIDC client-authentication
// dispatcher and cached token supplier for a machine-to-machine IDaaS
// client: given a configured authentication method it assembles the correct
// token request, parses the response, and keeps a bearer token warm via
// internal/cache.
package credential

import (
	"time"

	"github.com/jsamuelsen/idaas-m2m-client/internal/cache"
)

// DefaultScope is used when ClientConfig does not specify one.
const DefaultScope = "urn:cloud:idaas:pam|cloud_account:obtain_access_credential"

// Method identifies one of the OAuth2/OIDC client-authentication methods
// this client can assemble a token request for.
type Method string

// Supported authentication methods.
const (
	ClientSecretBasic Method = "CLIENT_SECRET_BASIC"
	ClientSecretPost  Method = "CLIENT_SECRET_POST"
	ClientSecretJWT   Method = "CLIENT_SECRET_JWT"
	PrivateKeyJWT     Method = "PRIVATE_KEY_JWT"
	PKCS7             Method = "PKCS7"
	OIDC              Method = "OIDC"
	PCA               Method = "PCA"
)

//nolint:tagliatelle // JSON field names mirror the RFC 6749 token response
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"-"`
}

// normalizeExpiresAt fills ExpiresAt from ExpiresIn (relative to receivedAt)
// when the server did not echo an absolute instant back, satisfying the
// invariant expires_at ~= now_at_receipt + expires_in.
func (t *TokenResponse) normalizeExpiresAt(receivedAt time.Time) {
	if t.ExpiresAt.IsZero() {
		t.ExpiresAt = receivedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
}

// AuthConfig describes which client-authentication method to use and the
// material it needs. Secrets are referenced indirectly by environment
// variable name; they are never embedded in config.
type AuthConfig struct {
	Method Method `mapstructure:"method" validate:"required,oneof=CLIENT_SECRET_BASIC CLIENT_SECRET_POST CLIENT_SECRET_JWT PRIVATE_KEY_JWT PKCS7 OIDC PCA"`

	// ClientSecretEnvVar names the environment variable holding the client
	// secret, used by CLIENT_SECRET_BASIC, CLIENT_SECRET_POST, and
	// CLIENT_SECRET_JWT.
	ClientSecretEnvVar string `mapstructure:"client_secret_env_var_name"`

	// PrivateKeyEnvVar names the environment variable holding a PEM-encoded
	// private key, used by PRIVATE_KEY_JWT and PCA.
	PrivateKeyEnvVar string `mapstructure:"private_key_env_var_name"`

	// FederatedCredentialName is the name under which the IDaaS platform
	// knows this client's federated trust relationship, used by PKCS7 and
	// OIDC.
	FederatedCredentialName string `mapstructure:"federated_credential_name"`

	// OIDCTokenFilePath is a direct filesystem path to the OIDC token file,
	// used by OIDC.
	OIDCTokenFilePath string `mapstructure:"oidc_token_file_path"`

	// CertificateChainPEM is the PEM-encoded X.509 certificate chain used by
	// PCA, supplied directly rather than via env var since it is not secret.
	CertificateChainPEM string `mapstructure:"certificate_chain_pem"`

	// Pkcs7CloudVendor selects which cloud metadata service to source a
	// PKCS7 attested document from, used by PKCS7.
	Pkcs7CloudVendor string `mapstructure:"pkcs7_cloud_vendor"`
}

// ClientConfig is the full set of inputs a CredentialProvider needs.
type ClientConfig struct {
	InstanceID     string        `mapstructure:"instance_id"`
	ClientID       string        `mapstructure:"client_id"       validate:"required"`
	Scope          string        `mapstructure:"scope"`
	TokenEndpoint  string        `mapstructure:"token_endpoint"   validate:"required,url"`
	IssuerURL      string        `mapstructure:"issuer_url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"min=2000000000,max=60000000000"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"    validate:"min=2000000000,max=60000000000"`
	SSLVerify      bool          `mapstructure:"ssl_verify"`
	UserAgent      string        `mapstructure:"user_agent"`
	Auth           AuthConfig    `mapstructure:"auth"`

	// PrefetchStrategy selects "one-caller-blocks" (default) or
	// "non-blocking".
	PrefetchStrategy string `mapstructure:"prefetch_strategy"`
	// StalePolicy selects "STRICT" (default) or "ALLOW".
	StalePolicy string `mapstructure:"stale_policy"`
}

// EffectiveScope returns cfg.Scope or DefaultScope if unset.
func (c *ClientConfig) EffectiveScope() string {
	if c.Scope == "" {
		return DefaultScope
	}

	return c.Scope
}

// EffectiveStalePolicy maps the configured string to a cache.StalePolicy,
// defaulting to STRICT.
func (c *ClientConfig) EffectiveStalePolicy() cache.StalePolicy {
	if c.StalePolicy == "ALLOW" {
		return cache.AllowStalePolicy
	}

	return cache.StrictPolicy
}

const (
	defaultConnectTimeout = 5 * time.Second
	defaultReadTimeout    = 10 * time.Second
)

// ApplyDefaults fills zero-valued timeouts with spec defaults. Called by the
// config loader before validation.
func (c *ClientConfig) ApplyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}

	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}
}
