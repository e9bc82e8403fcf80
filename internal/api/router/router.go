package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/wolfman30/careportal/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/careportal/internal/http/middleware"
	"github.com/wolfman30/careportal/pkg/logging"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger    *logging.Logger
	Directory *handlers.DirectoryHandler
	Bookings  *handlers.BookingHandler

	// PortalJWTSecret enables bearer-token auth; empty trusts X-Portal-Role.
	PortalJWTSecret    string
	CORSAllowedOrigins []string
	// RateLimitPerMinute caps /api requests per client IP; zero disables.
	RateLimitPerMinute int

	MetricsHandler http.Handler
	HealthChecks   map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", httpmiddleware.RoleHeader, "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			api.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
		}
		api.Use(httpmiddleware.PortalAuth(cfg.PortalJWTSecret))

		if cfg.Directory != nil {
			api.Mount("/directory", cfg.Directory.Routes())
		}
		if cfg.Bookings != nil {
			api.Mount("/bookings", cfg.Bookings.Routes())
		}
	})

	return r
}

// healthHandler runs every check with a short deadline. Any failure turns the
// response into a 503 naming the failing dependencies.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		deps := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				deps[name] = "down"
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "up"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "dependencies": deps})
	}
}
