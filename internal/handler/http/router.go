package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/griebenowschalk/manga-tracker/internal/auth"
	"github.com/griebenowschalk/manga-tracker/internal/domain"
	"github.com/griebenowschalk/manga-tracker/internal/repository"
	"github.com/griebenowschalk/manga-tracker/internal/service"
	"github.com/griebenowschalk/manga-tracker/pkg/health"
	"github.com/griebenowschalk/manga-tracker/pkg/middleware"
)

// RouterConfig bundles the router's dependencies.
type RouterConfig struct {
	AuthService   *service.AuthService
	UserService   *service.UserService
	UserRepo      repository.UserRepository
	TokenManager  *auth.TokenManager
	HealthHandler *health.Handler
	Redis         *redis.Client
	Logger        *slog.Logger
	CORS          middleware.CORSConfig
	Cookies       CookieConfig
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware. RequestLogging seeds the correlation ID, Tracing the
	// span context, and RequestLogger folds both into the request-scoped
	// logger handlers pull from the context.
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Tracing("accounts"))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("accounts"))

	// Health check endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// The access token carries only the user id. Role and account existence
	// are checked against the database on every request, so a deleted or
	// demoted user loses access as soon as their next request lands.
	tokenValidator := func(ctx context.Context, token string) (*middleware.Claims, error) {
		claims, err := cfg.TokenManager.VerifyAccessToken(token)
		if err != nil {
			return nil, err
		}
		user, err := cfg.UserRepo.GetByID(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: user.ID, Role: user.Role}, nil
	}
	authn := middleware.Auth(tokenValidator, AccessCookieName)

	authHandler := NewAuthHandler(cfg.AuthService, cfg.Cookies, cfg.Logger)
	userHandler := NewUserHandler(cfg.UserService, cfg.Logger)

	loginLimiter := middleware.RateLimit(middleware.RateLimitConfig{
		Name: "login", Limit: 10, Window: time.Minute,
	}, cfg.Redis, cfg.Logger)
	forgotLimiter := middleware.RateLimit(middleware.RateLimitConfig{
		Name: "forgot", Limit: 3, Window: 15 * time.Minute,
	}, cfg.Redis, cfg.Logger)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.CSRF(CSRFCookieName))

		r.Group(func(r chi.Router) {
			r.Use(loginLimiter)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(forgotLimiter)
			r.Post("/forgot-password", authHandler.ForgotPassword)
		})
		r.Put("/reset-password/{token}", authHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Get("/me", authHandler.Me)
			r.Put("/update-details", authHandler.UpdateDetails)
			r.Put("/update-password", authHandler.UpdatePassword)
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.CSRF(CSRFCookieName))
		r.Use(authn)
		r.Use(middleware.RequireRole(domain.RoleAdmin))

		r.Get("/", userHandler.List)
		r.Post("/", userHandler.Create)
		r.Get("/{id}", userHandler.Get)
		r.Put("/{id}", userHandler.Update)
		r.Delete("/{id}", userHandler.Delete)
	})

	return r
}
