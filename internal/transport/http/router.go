package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-verify-api/internal/application/verification"
	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/transport/http/handler"
	appmiddleware "github.com/go-verify-api/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	if deps.Metrics != nil {
		r.Use(appmiddleware.Instrument(deps.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 per client IP on the public verify endpoints.
	verifyRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	svcDeps := verification.ServiceDeps{
		Records:   deps.Records,
		Validator: deps.Validator,
		Archive:   deps.Archive,
		Events:    deps.Events,
		Window:    cfg.RateLimitWindow,
	}
	if deps.Metrics != nil {
		svcDeps.Recorder = deps.Metrics
	}
	verifySvc := verification.NewService(svcDeps)

	healthH := handler.NewHealthHandler()
	verifyH := handler.NewVerificationHandler(verifySvc)
	adminH := handler.NewAdminHandler(verifySvc)

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		// ── Public routes ───────────────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(verifyRL.Limit)
			r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

			r.Post("/verify/email", verifyH.VerifyEmail)
			r.Post("/verify/phone", verifyH.VerifyPhone)
		})

		// ── Admin routes (bearer token) ─────────────────────────────────────
		if deps.JWTProvider != nil {
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.Auth(deps.JWTProvider))
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin, domain.RoleAnalyst))

				r.Get("/admin/verifications/{id}", adminH.GetVerification)
				r.Get("/admin/stats", adminH.Stats)
			})
		}
	})

	return r
}
