package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/princesingh-ai-dev/faceauth/internal/web/handlers"
)

const requestTimeout = 30 * time.Second

func (s *Server) setupRoutes() {
	identities := handlers.NewIdentityHandler(s.store, s.config.Biometric.MatchThreshold, s.events)

	s.router.Get("/api/health", handlers.HealthCheck)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.Post("/register", identities.Register)
			r.Post("/verify", identities.Verify)
			r.Get("/users", identities.List)
			r.Delete("/delete/{name}", identities.Delete)
		})

		// Long-lived SSE stream, no request timeout
		r.Get("/events", s.events.Stream)
	})
}
