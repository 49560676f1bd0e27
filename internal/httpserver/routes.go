package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/idaas-m2m-client/internal/credential"
	custommiddleware "github.com/jsamuelsen/idaas-m2m-client/internal/middleware"
)

// registerRoutes wires /healthz (liveness, always 200), /readyz (readiness,
// backed by a credential fetch), and /metrics (Prometheus scrape target).
// There is no authenticated API surface: this process is a credential
// client, not a token-issuing service.
func registerRoutes(provider *credential.CredentialProvider) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(custommiddleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", handleLiveness)
	r.Get("/readyz", handleReadiness(provider))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReadiness(provider *credential.CredentialProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := provider.GetBearerToken(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))

			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
