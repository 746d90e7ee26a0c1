package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public routes, no auth required.
	r.Get("/health", g.handleHealth())
	r.Get("/status", g.handleStatus())
	r.Method(http.MethodGet, "/metrics", g.metrics.Handler())

	// Admin routes behind bearer auth. Not mounted when no token is configured.
	if g.cfg.AuthToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(g.cfg.AuthToken))
			r.Route("/api", func(r chi.Router) {
				r.Get("/interceptors", g.handleListInterceptors())
				r.Patch("/interceptors/{id}", g.handlePatchInterceptor())
				r.Delete("/interceptors/{id}", g.handleDeleteInterceptor())
			})
		})
	}

	return r
}

// bearerAuth validates a Bearer token using constant-time comparison.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
				if subtle.ConstantTimeCompare([]byte(after), []byte(token)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}
