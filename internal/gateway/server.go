package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", g.metricsHandler())

	// Webhooks: own HMAC auth per source.
	r.Post("/webhooks/{source}", g.webhooks.ServeHTTP)

	// Messaging: behind auth when configured.
	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.limiter, g.logger))
		}
		r.Post("/api/messages", g.handlePostMessage())
		r.Get("/ws", g.handleWebSocket)
	})

	// Admin endpoints: auth required. Not mounted if no auth configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.limiter, g.logger))
			r.Get("/status", g.handleStatus())
			r.Get("/api/branches", g.handleListBranches())
			r.Get("/api/modules", g.handleGetAllModules())
			r.Get("/api/config", g.handleGetConfig())
			r.Post("/api/config/reload", g.handleReloadConfig())
		})
	}

	return r
}

func (g *Gateway) metricsHandler() http.Handler {
	if g.gatherer != nil {
		return promhttp.HandlerFor(g.gatherer, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}
