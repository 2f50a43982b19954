package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/outreach-engine/internal/alert"
	"github.com/ignite/outreach-engine/internal/config"
)

// Deps are the collaborators the handlers call. Nil members disable the
// routes that need them.
type Deps struct {
	Unsubscriber Unsubscriber
	Suppressions SuppressionLister
	Campaigns    CampaignManager
	Previewer    Previewer
	Alerter      alert.Alerter
	Health       *HealthChecker
}

// Server is the HTTP server.
type Server struct {
	handler http.Handler
	router  *chi.Mux
	server  *http.Server
}

// NewServer builds the router for deps.
func NewServer(cfg *config.Config, deps Deps) *Server {
	h := &Handlers{
		deps:           deps,
		appURL:         cfg.Delivery.AppURL,
		callbackSecret: []byte(cfg.Queue.CallbackSecret),
		now:            time.Now,
	}
	router := SetupRoutes(h, cfg.API)
	return &Server{handler: router, router: router}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
