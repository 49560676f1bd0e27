// Package httpserver runs the ancillary HTTP server this client exposes for
// operational visibility: liveness/readiness probes and a Prometheus scrape
// target. It never serves the credential it holds over HTTP; callers obtain
// the bearer token in-process via credential.CredentialProvider.
package httpserver

import (
	"fmt"
	"net/http"

	"github.com/jsamuelsen/idaas-m2m-client/internal/config"
	"github.com/jsamuelsen/idaas-m2m-client/internal/credential"
)

// New builds the *http.Server, ready to ListenAndServe.
func New(cfg config.ServerConfig, provider *credential.CredentialProvider) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      registerRoutes(provider),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
