package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	httprateredis "github.com/go-chi/httprate-redis"
	"github.com/redis/go-redis/v9"

	"github.com/dealerdesk/dealerdesk/internal/httputil"
)

// RateLimitConfig holds rate limiting configuration for a route class.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
	Redis    *redis.Client // nil falls back to in-process counters
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	opts := []httprate.Option{
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	}
	if cfg.Redis != nil {
		opts = append(opts, httprateredis.WithRedisLimitCounter(&httprateredis.Config{
			Client: cfg.Redis,
		}))
	}
	return httprate.Limit(cfg.Requests, cfg.Window, opts...)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// RateLimiters holds one limiter per route class.
type RateLimiters struct {
	// Auth covers credential-accepting endpoints: login, magic-link,
	// reset, invitation.
	Auth func(http.Handler) http.Handler
	// API covers authenticated endpoints.
	API func(http.Handler) http.Handler
	// Public covers unauthenticated read endpoints.
	Public func(http.Handler) http.Handler
}

// RateLimitersConfig configures the per-class limiters.
type RateLimitersConfig struct {
	Enabled        bool
	AuthRequests   int
	AuthWindow     time.Duration
	APIRequests    int
	APIWindow      time.Duration
	PublicRequests int
	PublicWindow   time.Duration
	Redis          *redis.Client
}

// CreateRateLimiters creates the per-class rate limiting middleware.
func CreateRateLimiters(cfg RateLimitersConfig, logger *slog.Logger) RateLimiters {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return RateLimiters{Auth: noOp, API: noOp, Public: noOp}
	}

	return RateLimiters{
		Auth: RateLimit(RateLimitConfig{
			Requests: cfg.AuthRequests,
			Window:   cfg.AuthWindow,
			Logger:   logger,
			Redis:    cfg.Redis,
		}),
		API: RateLimit(RateLimitConfig{
			Requests: cfg.APIRequests,
			Window:   cfg.APIWindow,
			Logger:   logger,
			Redis:    cfg.Redis,
		}),
		Public: RateLimit(RateLimitConfig{
			Requests: cfg.PublicRequests,
			Window:   cfg.PublicWindow,
			Logger:   logger,
			Redis:    cfg.Redis,
		}),
	}
}
