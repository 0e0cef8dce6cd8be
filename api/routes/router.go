package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vatavaran/vatavaran-backend/api/controllers"
	"github.com/vatavaran/vatavaran-backend/api/middleware"
	"github.com/vatavaran/vatavaran-backend/internal/auth"
	"github.com/vatavaran/vatavaran-backend/internal/classification"
	"github.com/vatavaran/vatavaran-backend/internal/feedback"
	"github.com/vatavaran/vatavaran-backend/internal/pickups"
	"github.com/vatavaran/vatavaran-backend/internal/staff"
	"github.com/vatavaran/vatavaran-backend/internal/uploads"
	"github.com/vatavaran/vatavaran-backend/pkg/auth/session"
	"github.com/vatavaran/vatavaran-backend/pkg/config"
	"github.com/vatavaran/vatavaran-backend/pkg/enums"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
	"github.com/vatavaran/vatavaran-backend/pkg/metrics"
	pkgredis "github.com/vatavaran/vatavaran-backend/pkg/redis"
)

// Deps carries everything the router mounts.
type Deps struct {
	Sessions       session.AccessSessionChecker
	Redis          *pkgredis.Client
	Readiness      map[string]controllers.Pinger
	Registry       *prometheus.Registry
	HTTPMetrics    *metrics.HTTPMetrics
	Auth           auth.Service
	Staff          staff.Service
	Pickups        pickups.Service
	Uploads        uploads.Service
	Classification classification.Service
	Feedback       feedback.Service
}

// NewRouter wires middleware and every HTTP route.
func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.Logging(logg, deps.HTTPMetrics))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	r.Get("/health/live", controllers.HealthLive())
	r.Get("/health/ready", controllers.HealthReady(deps.Readiness, logg))
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	idempotency := passThrough
	if deps.Redis != nil {
		idempotency = middleware.Idempotency(deps.Redis, logg)
	}

	loginPolicy := middleware.RateLimitPolicy{
		Name:     "login",
		Window:   cfg.AuthRateLimit.LoginWindow,
		PerIP:    cfg.AuthRateLimit.LoginIPLimit,
		PerEmail: cfg.AuthRateLimit.LoginEmailLimit,
	}
	signupPolicy := middleware.RateLimitPolicy{
		Name:     "signup",
		Window:   cfg.AuthRateLimit.SignupWindow,
		PerIP:    cfg.AuthRateLimit.SignupIPLimit,
		PerEmail: cfg.AuthRateLimit.SignupEmailLimit,
	}
	loginLimit := passThrough
	signupLimit := passThrough
	if deps.Redis != nil {
		loginLimit = middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)
		signupLimit = middleware.AuthRateLimit(signupPolicy, deps.Redis, logg)
	}

	adminOnly := middleware.RequireRole(logg, enums.RoleAdmin)
	reviewers := middleware.RequireRole(logg, enums.RoleSupervisor, enums.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(signupLimit, idempotency).Post("/signup", controllers.AuthSignup(deps.Auth, logg))
			r.With(loginLimit).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		})

		r.Post("/contact", controllers.ContactCreate(deps.Feedback, logg))
		r.Post("/improvements", controllers.ImprovementCreate(deps.Feedback, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

			r.Route("/pickups", func(r chi.Router) {
				r.With(idempotency).Post("/", controllers.PickupCreate(deps.Pickups, logg))
				r.Get("/my", controllers.PickupListMine(deps.Pickups, logg))
				r.With(reviewers).Get("/", controllers.PickupListAll(deps.Pickups, logg))
				r.Get("/{pickupId}", controllers.PickupGet(deps.Pickups, logg))
				r.Put("/{pickupId}", controllers.PickupEdit(deps.Pickups, logg))
				r.Delete("/{pickupId}", controllers.PickupDelete(deps.Pickups, logg))
				r.With(reviewers, idempotency).Patch("/{pickupId}/status", controllers.PickupReview(deps.Pickups, logg))
			})

			r.Get("/staff/me", controllers.StaffMe(deps.Staff, logg))
			r.With(adminOnly, idempotency).Post("/admin/staff", controllers.AdminCreateStaff(deps.Staff, logg))

			r.Post("/uploads", controllers.UploadImage(deps.Uploads, logg))
			r.Post("/ai/classify", controllers.ClassifyImage(deps.Classification, logg))

			r.With(adminOnly).Get("/contact", controllers.ContactList(deps.Feedback, logg))
			r.With(adminOnly).Get("/improvements", controllers.ImprovementList(deps.Feedback, logg))
		})
	})

	return r
}

func passThrough(next http.Handler) http.Handler {
	return next
}
