/**
 * @description
 * This file sets up the HTTP router for the console service using the
 * go-chi/chi router. It defines the API routes, applies middleware for
 * logging, recovery, CORS, and metrics, and maps the routes to their
 * corresponding handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/paydeck/console-service/internal/observability"
)

// NewRouter creates a new Chi router and registers the console routes.
func NewRouter(h *Handler, metrics *observability.Metrics) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Console service is healthy"))
	})

	r.Handle("/metrics", metrics.Handler())

	r.Route("/subscriptions", func(r chi.Router) {
		r.Get("/", h.handleListSubscriptions)
		r.Post("/", h.handleCreateSubscription)
		r.Get("/{subscriptionID}", h.handleGetSubscription)
	})

	return r
}
