package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"licenser/internal/config"
	"licenser/internal/infrastructure"
	"licenser/internal/license"
	"licenser/internal/middleware"
)

// RouterDeps carries everything the router needs. OTel is optional;
// tests wire a router without it.
type RouterDeps struct {
	Config   *config.Config
	DB       *gorm.DB
	Licenses *license.Service
	Workflow *license.Workflow
	OTel     *middleware.OTelMiddleware
	Metrics  *infrastructure.BusinessMetrics
	Prom     http.Handler
	Logger   *slog.Logger
}

// NewRouter assembles the full middleware chain and mounts the
// license API under /v1.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if deps.OTel != nil {
		r.Use(deps.OTel.Handler)
	}
	r.Use(middleware.StructuredLogger(deps.Logger))
	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Compress(5))

	if rl := deps.Config.Server.RateLimit; rl.Enabled {
		limiter := middleware.NewRateLimiter(rl.RPS, rl.Burst, deps.Logger)
		r.Use(limiter.Handler)
	}

	health := NewHealthHandler(deps.DB, deps.Logger)
	r.Get("/healthz", health.HealthCheck)
	r.Get("/healthz/live", health.LivenessCheck)
	r.Get("/version", health.Version)

	if deps.Prom != nil {
		r.Handle("/metrics", deps.Prom)
	}

	signingKey := []byte(deps.Config.Auth.TokenSecret)
	adminOnly := middleware.RequireRole(middleware.RoleAdmin, deps.Logger)

	licenses := NewLicenseHandler(deps.Licenses, deps.Workflow, deps.Metrics, deps.Logger)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Authenticator(signingKey, deps.Logger))
		r.Mount("/licenses", licenses.Routes(adminOnly))
	})

	return r
}
