package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dealerdesk/dealerdesk/internal/config"
	"github.com/dealerdesk/dealerdesk/internal/http/features/authn"
	"github.com/dealerdesk/dealerdesk/internal/http/features/me"
	"github.com/dealerdesk/dealerdesk/internal/http/features/mfa"
	"github.com/dealerdesk/dealerdesk/internal/http/features/uploads"
	"github.com/dealerdesk/dealerdesk/internal/http/features/users"
	"github.com/dealerdesk/dealerdesk/internal/http/features/vehicles"
	"github.com/dealerdesk/dealerdesk/internal/http/middleware"
	"github.com/dealerdesk/dealerdesk/internal/httputil"
	"github.com/dealerdesk/dealerdesk/internal/storage"
	"github.com/dealerdesk/dealerdesk/pkg/auth"
	"github.com/dealerdesk/dealerdesk/pkg/domain"
	"github.com/dealerdesk/dealerdesk/pkg/repository"
)

const maxRequestBodySize = 1 << 20 // 1 MiB, JSON API only

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger         *slog.Logger
	Config         *config.Config
	AuthService    *auth.Service
	SessionService *auth.SessionService
	UsersRepo      *repository.UsersRepository
	VehiclesRepo   *repository.VehiclesRepository
	AuditRepo      *repository.AuditRepository
	Uploader       *storage.Uploader // nil when S3 is not configured
	Redis          *redis.Client     // nil for in-process rate limit counters
	CookieSecure   bool
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestSizeLimit(maxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	rateLimiters := middleware.CreateRateLimiters(middleware.RateLimitersConfig{
		Enabled:        cfg.Config.RateLimitEnabled,
		AuthRequests:   cfg.Config.AuthRequests,
		AuthWindow:     cfg.Config.AuthWindow,
		APIRequests:    cfg.Config.APIRequests,
		APIWindow:      cfg.Config.APIWindow,
		PublicRequests: cfg.Config.PublicRequests,
		PublicWindow:   cfg.Config.PublicWindow,
		Redis:          cfg.Redis,
	}, cfg.Logger)

	cookieConfig := httputil.DefaultCookieConfig()
	cookieConfig.Secure = cfg.CookieSecure

	requireAuth := middleware.Auth(cfg.SessionService)

	// Credential-accepting endpoints share the strict limiter.
	authnHandler := authn.NewHandler(cfg.Logger, cfg.AuthService, cookieConfig, cfg.Config.AppBaseURL)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters.Auth)
		r.Post("/v1/auth/login", authnHandler.Login)
		r.Post("/v1/auth/magic", authnHandler.RequestMagicLink)
		r.Get("/v1/auth/magic/verify", authnHandler.VerifyMagicLinkGet)
		r.Post("/v1/auth/magic/verify", authnHandler.VerifyMagicLink)
		r.Post("/v1/auth/reset/request", authnHandler.RequestPasswordReset)
		r.Post("/v1/auth/reset/complete", authnHandler.CompletePasswordReset)
		r.Post("/v1/auth/invitation/validate", authnHandler.ValidateInvitation)
		r.Post("/v1/auth/invitation/complete", authnHandler.CompleteInvitation)
	})
	r.Post("/v1/auth/logout", authnHandler.Logout)

	// Profile and two-factor enrollment.
	meHandler := me.NewHandler(cfg.Logger, cfg.UsersRepo)
	mfaHandler := mfa.NewHandler(cfg.Logger, cfg.AuthService)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters.API)
		r.Use(requireAuth)
		r.Get("/v1/me", meHandler.Get)
		r.Get("/v1/me/2fa", mfaHandler.Status)
		r.Post("/v1/me/2fa/setup", mfaHandler.Setup)
		r.Post("/v1/me/2fa/enable", mfaHandler.Enable)
		r.Post("/v1/me/2fa/disable", mfaHandler.Disable)
	})

	// Inventory. Reads are public, writes are permission-gated.
	vehiclesHandler := vehicles.NewHandler(cfg.Logger, cfg.VehiclesRepo, cfg.AuditRepo)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters.Public)
		r.Get("/v1/vehicles", vehiclesHandler.List)
		r.Get("/v1/vehicles/{id}", vehiclesHandler.Get)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters.API)
		r.Use(requireAuth)
		r.With(middleware.RequirePermission(domain.PermVehiclesCreate)).
			Post("/v1/vehicles", vehiclesHandler.Create)
		r.With(middleware.RequirePermission(domain.PermVehiclesUpdate)).
			Put("/v1/vehicles/{id}", vehiclesHandler.Update)
		r.With(middleware.RequirePermission(domain.PermVehiclesDelete)).
			Delete("/v1/vehicles/{id}", vehiclesHandler.Delete)
	})

	// Staff administration.
	usersHandler := users.NewHandler(cfg.Logger, cfg.UsersRepo, cfg.AuthService, cfg.AuditRepo)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters.API)
		r.Use(requireAuth)
		r.With(middleware.RequirePermission(domain.PermUsersRead)).
			Get("/v1/users", usersHandler.List)
		r.With(middleware.RequirePermission(domain.PermUsersRead)).
			Get("/v1/users/{id}", usersHandler.Get)
		r.With(middleware.RequirePermission(domain.PermUsersCreate)).
			Post("/v1/users", usersHandler.Create)
		r.With(middleware.RequirePermission(domain.PermUsersCreate)).
			Post("/v1/users/{id}/invite", usersHandler.Invite)
		r.With(middleware.RequirePermission(domain.PermUsersUpdate)).
			Put("/v1/users/{id}", usersHandler.Update)
		r.With(middleware.RequirePermission(domain.PermUsersDelete)).
			Delete("/v1/users/{id}", usersHandler.Delete)
	})

	// Uploads.
	uploadsHandler := uploads.NewHandler(cfg.Logger, cfg.Uploader)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters.API)
		r.Use(requireAuth)
		r.With(middleware.RequirePermission(domain.PermVehiclesCreate)).
			Post("/v1/uploads/url", uploadsHandler.Presign)
	})

	return r
}
