package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/siapee/siapee/pkg/health"
	"github.com/siapee/siapee/pkg/middleware"
	"github.com/siapee/siapee/services/identity/internal/domain"
)

// RouterConfig holds the router's cross-cutting settings.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
	// AuthLimiter throttles the public /auth and /signup endpoints per client
	// IP. Nil disables throttling.
	AuthLimiter *middleware.RateLimiter
}

// NewRouter creates a chi router with all identity service routes registered.
func NewRouter(
	authService AuthService,
	userService UserService,
	signupService SignupService,
	verify middleware.TokenVerifier,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.AuthLimiter != nil {
		throttle = cfg.AuthLimiter.Handler
	}
	authenticated := func(r chi.Router) {
		r.Use(middleware.Authenticate(verify))
		// Pick up the principal for request-scoped logs.
		r.Use(middleware.RequestLogger(logger))
	}

	authHandler := NewAuthHandler(authService, logger)
	r.Route("/auth", func(r chi.Router) {
		r.Use(throttle)

		// Logout accepts any body and always succeeds.
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)

			r.Group(func(r chi.Router) {
				authenticated(r)
				r.Post("/change-password", authHandler.ChangePassword)
			})
		})
	})

	userHandler := NewUserHandler(userService, logger)
	r.Route("/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		authenticated(r)

		r.Get("/me", userHandler.GetProfile)
		r.Put("/me", userHandler.UpdateProfile)
	})

	signupHandler := NewSignupHandler(signupService, logger)
	r.Route("/signup", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.With(throttle).Post("/request", signupHandler.Submit)

		r.Group(func(r chi.Router) {
			authenticated(r)
			r.Use(middleware.RequireRole(userService, domain.SignupDeciderRoles()...))

			r.Get("/requests", signupHandler.List)
			r.Post("/requests/{id}/decide", signupHandler.Decide)
		})
	})

	return r
}
