package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/pkg/httputil"
)

// SetupRoutes configures all routes.
func SetupRoutes(h *Handlers, cfg config.APIConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if hc := h.deps.Health; hc != nil {
		r.Get("/healthz", hc.HandleLiveness)
		r.Get("/health/ready", hc.HandleReadiness)
	} else {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			httputil.OK(w, map[string]string{"status": "alive"})
		})
	}

	// Public: reached from links in delivered mail.
	r.Get("/unsubscribe", h.Unsubscribe)

	r.Route("/api", func(r chi.Router) {
		origins := cfg.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000", "http://localhost:5173"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", accountHeader},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		// Signed with the callback secret instead of the API token.
		r.Post("/queue/failures", h.QueueFailure)

		r.Group(func(r chi.Router) {
			r.Use(requireToken(cfg.Token))

			r.Post("/allocation/preview", h.PreviewAllocation)
			r.Get("/suppressions", h.ListSuppressions)

			r.Route("/campaigns", func(r chi.Router) {
				r.Use(requireAccount)
				r.Get("/", h.ListCampaigns)
				r.Post("/", h.CreateCampaign)
				r.Get("/{id}", h.GetCampaign)
				r.Put("/{id}/sender", h.AssignSender)
				r.Post("/{id}/activate", h.ActivateCampaign)
				r.Post("/{id}/deactivate", h.DeactivateCampaign)
			})
		})
	})

	return r
}

// requireToken rejects requests without the configured bearer token. An
// empty token rejects everything.
func requireToken(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(httputil.BearerToken(r))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				httputil.Unauthorized(w, "invalid or missing token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
