package credential

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const (
	contentTypeForm         = "application/x-www-form-urlencoded"
	grantClientCredentials  = "client_credentials"
	clientAssertionTypeJWT  = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
)

// Materials bundles every auth-material provider a request for any method
// might need. Only the providers relevant to the configured Method are
// consulted; the rest may be nil.
type Materials struct {
	JwtAssertion JwtClientAssertionProvider
	Oidc         OidcTokenProvider
	Pkcs7        Pkcs7Provider
	CertChain    CertificateChainProvider
}

// buildTokenRequest maps (method, material, endpoint, scope) to an
// *http.Request. It reads the configured environment variable for
// CLIENT_SECRET_BASIC/POST and calls the material providers the method
// needs; those providers may do I/O of their own (reading a key from the
// environment, an OIDC token file, or the cloud metadata service).
func buildTokenRequest(ctx context.Context, cfg *ClientConfig, materials Materials) (*http.Request, error) {
	auth := cfg.Auth
	scope := cfg.EffectiveScope()

	data, err := buildFormValues(ctx, cfg, auth, scope, materials)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &ConfigError{Field: "token_endpoint", Err: err}
	}

	req.Header.Set("Content-Type", contentTypeForm)
	req.Header.Set("Accept", "application/json")

	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	if auth.Method == ClientSecretBasic {
		secret, secErr := readEnvSecret(auth.ClientSecretEnvVar, "CLIENT_SECRET_BASIC")
		if secErr != nil {
			return nil, secErr
		}

		req.SetBasicAuth(cfg.ClientID, secret)
	}

	return req, nil
}

func buildFormValues(ctx context.Context, cfg *ClientConfig, auth AuthConfig, scope string, materials Materials) (url.Values, error) {
	switch auth.Method {
	case ClientSecretBasic:
		return url.Values{
			"grant_type": {grantClientCredentials},
			"scope":      {scope},
		}, nil

	case ClientSecretPost:
		secret, err := readEnvSecret(auth.ClientSecretEnvVar, "CLIENT_SECRET_POST")
		if err != nil {
			return nil, err
		}

		return url.Values{
			"grant_type":    {grantClientCredentials},
			"client_id":     {cfg.ClientID},
			"client_secret": {secret},
			"scope":         {scope},
		}, nil

	case ClientSecretJWT, PrivateKeyJWT:
		if materials.JwtAssertion == nil {
			return nil, &ConfigError{Field: "auth", Err: fmt.Errorf("%s requires a JwtClientAssertionProvider", auth.Method)}
		}

		assertion, err := materials.JwtAssertion.GetClientAssertion(ctx)
		if err != nil {
			return nil, err
		}

		return url.Values{
			"grant_type":            {grantClientCredentials},
			"client_assertion_type": {clientAssertionTypeJWT},
			"client_assertion":      {assertion},
			"scope":                 {scope},
		}, nil

	case PKCS7:
		if materials.Pkcs7 == nil {
			return nil, &ConfigError{Field: "auth", Err: fmt.Errorf("PKCS7 requires a Pkcs7Provider")}
		}

		doc, err := materials.Pkcs7.GetPkcs7Document(ctx)
		if err != nil {
			return nil, err
		}

		return url.Values{
			"grant_type":                {grantClientCredentials},
			"client_id":                 {cfg.ClientID},
			"scope":                     {scope},
			"pkcs7_document":            {doc},
			"federated_credential_name": {auth.FederatedCredentialName},
		}, nil

	case OIDC:
		if materials.Oidc == nil {
			return nil, &ConfigError{Field: "auth", Err: fmt.Errorf("OIDC requires an OidcTokenProvider")}
		}

		tok, err := materials.Oidc.GetOidcToken(ctx)
		if err != nil {
			return nil, err
		}

		return url.Values{
			"grant_type":                {grantClientCredentials},
			"client_id":                 {cfg.ClientID},
			"scope":                     {scope},
			"oidc_token":                {tok},
			"federated_credential_name": {auth.FederatedCredentialName},
		}, nil

	case PCA:
		if materials.JwtAssertion == nil || materials.CertChain == nil {
			return nil, &ConfigError{Field: "auth", Err: fmt.Errorf("PCA requires a JwtClientAssertionProvider and a CertificateChainProvider")}
		}

		assertion, err := materials.JwtAssertion.GetClientAssertion(ctx)
		if err != nil {
			return nil, err
		}

		chain, err := materials.CertChain.GetCertificateChain(ctx)
		if err != nil {
			return nil, err
		}

		return url.Values{
			"grant_type":              {grantClientCredentials},
			"client_assertion_type":   {clientAssertionTypeJWT},
			"client_assertion":        {assertion},
			"scope":                   {scope},
			"x509_certificate_chain":  {chain},
		}, nil

	default:
		return nil, &ConfigError{Field: "auth.method", Err: fmt.Errorf("unsupported method %q", auth.Method)}
	}
}

func readEnvSecret(envVar, method string) (string, error) {
	if envVar == "" {
		return "", &ConfigError{Field: "auth.client_secret_env_var_name", Err: fmt.Errorf("not set for %s", method)}
	}

	secret := os.Getenv(envVar)
	if secret == "" {
		return "", &CredentialError{Source: method, Err: fmt.Errorf("%s is empty", envVar)}
	}

	return secret, nil
}
