package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jntagengwa/pathway/app"
	"github.com/jntagengwa/pathway/auth"
	"github.com/jntagengwa/pathway/handlers"
	"github.com/jntagengwa/pathway/middleware"
	"github.com/jntagengwa/pathway/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout(deps)))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Link", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", handlers.StatusHandler(deps))

		// Everything else requires an auth context
		r.Group(func(r chi.Router) {
			r.Use(deps.Guard.Middleware)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", handlers.MeHandler(deps))
				r.Get("/tenant", handlers.TenantHandler(deps))
				r.Get("/tenant/{field}", handlers.TenantFieldHandler(deps))
			})

			r.Route("/context", func(r chi.Router) {
				r.Get("/audit", handlers.AuditHandler(deps))
				r.Get("/permissions", handlers.PermissionsHandler(deps))
			})

			// Org administration
			r.Route("/admin", func(r chi.Router) {
				r.Use(deps.Guard.RequireOrgRole(auth.OrgRoleOwner, auth.OrgRoleAdmin))
				r.Get("/ping", handlers.AdminPingHandler(deps))
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

func requestTimeout(deps *app.Dependencies) time.Duration {
	if t := deps.Config.Server.RequestTimeout; t > 0 {
		return t
	}
	return 60 * time.Second
}
