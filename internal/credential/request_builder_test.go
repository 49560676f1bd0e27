package credential

import (
	"context"
	"io"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig(method Method) *ClientConfig {
	return &ClientConfig{
		ClientID:      "client-1",
		TokenEndpoint: "https://idaas.example.com/oauth2/token",
		Scope:         "urn:test:scope",
		Auth:          AuthConfig{Method: method},
	}
}

func decodeBody(t *testing.T, body io.Reader) url.Values {
	t.Helper()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)

	values, err := url.ParseQuery(string(raw))
	require.NoError(t, err)

	return values
}

func TestBuildTokenRequest_ClientSecretPost(t *testing.T) {
	t.Setenv("TEST_POST_SECRET", "p0st-secret")

	cfg := baseConfig(ClientSecretPost)
	cfg.Auth.ClientSecretEnvVar = "TEST_POST_SECRET"

	req, err := buildTokenRequest(t.Context(), cfg, Materials{})
	require.NoError(t, err)

	values := decodeBody(t, req.Body)
	assert.Equal(t, "client_credentials", values.Get("grant_type"))
	assert.Equal(t, "client-1", values.Get("client_id"))
	assert.Equal(t, "p0st-secret", values.Get("client_secret"))
	assert.Equal(t, "urn:test:scope", values.Get("scope"))
}

func TestBuildTokenRequest_ClientSecretBasic_MissingEnvVar(t *testing.T) {
	cfg := baseConfig(ClientSecretBasic)
	cfg.Auth.ClientSecretEnvVar = ""

	_, err := buildTokenRequest(t.Context(), cfg, Materials{})
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestBuildTokenRequest_ClientSecretJWT(t *testing.T) {
	cfg := baseConfig(ClientSecretJWT)

	materials := Materials{JwtAssertion: staticAssertion("assertion-xyz")}

	req, err := buildTokenRequest(t.Context(), cfg, materials)
	require.NoError(t, err)

	values := decodeBody(t, req.Body)
	assert.Equal(t, "assertion-xyz", values.Get("client_assertion"))
	assert.Equal(t, clientAssertionTypeJWT, values.Get("client_assertion_type"))
}

func TestBuildTokenRequest_PKCS7(t *testing.T) {
	cfg := baseConfig(PKCS7)
	cfg.Auth.FederatedCredentialName = "ecs-trust"

	materials := Materials{Pkcs7: StaticPkcs7("pkcs7-document-bytes")}

	req, err := buildTokenRequest(t.Context(), cfg, materials)
	require.NoError(t, err)

	values := decodeBody(t, req.Body)
	assert.Equal(t, "pkcs7-document-bytes", values.Get("pkcs7_document"))
	assert.Equal(t, "ecs-trust", values.Get("federated_credential_name"))
}

func TestBuildTokenRequest_OIDC(t *testing.T) {
	cfg := baseConfig(OIDC)
	cfg.Auth.FederatedCredentialName = "gh-actions"

	materials := Materials{Oidc: StaticOidcToken("oidc-jwt")}

	req, err := buildTokenRequest(t.Context(), cfg, materials)
	require.NoError(t, err)

	values := decodeBody(t, req.Body)
	assert.Equal(t, "oidc-jwt", values.Get("oidc_token"))
	assert.Equal(t, "gh-actions", values.Get("federated_credential_name"))
}

func TestBuildTokenRequest_PCA(t *testing.T) {
	cfg := baseConfig(PCA)

	materials := Materials{
		JwtAssertion: staticAssertion("pca-assertion"),
		CertChain:    StaticCertificateChain("-----BEGIN CERTIFICATE-----\n...\n-----END CERTIFICATE-----"),
	}

	req, err := buildTokenRequest(t.Context(), cfg, materials)
	require.NoError(t, err)

	values := decodeBody(t, req.Body)
	assert.Equal(t, "pca-assertion", values.Get("client_assertion"))
	assert.Contains(t, values.Get("x509_certificate_chain"), "BEGIN CERTIFICATE")
}

func TestBuildTokenRequest_UnsupportedMethod(t *testing.T) {
	cfg := baseConfig(Method("BOGUS"))

	_, err := buildTokenRequest(t.Context(), cfg, Materials{})
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

type staticAssertion string

func (s staticAssertion) GetClientAssertion(context.Context) (string, error) { return string(s), nil }
