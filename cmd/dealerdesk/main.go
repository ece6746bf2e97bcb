package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/dealerdesk/dealerdesk/internal/config"
	httpserver "github.com/dealerdesk/dealerdesk/internal/http"
	"github.com/dealerdesk/dealerdesk/internal/kv"
	"github.com/dealerdesk/dealerdesk/internal/notification"
	"github.com/dealerdesk/dealerdesk/internal/storage"
	"github.com/dealerdesk/dealerdesk/pkg/auth"
	"github.com/dealerdesk/dealerdesk/pkg/domain"
	"github.com/dealerdesk/dealerdesk/pkg/repository"
)

const tokenCleanupInterval = time.Hour

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	usersRepo := repository.NewUsersRepository(db)
	tokensRepo := repository.NewTokensRepository(db)
	vehiclesRepo := repository.NewVehiclesRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Lockout counters live in redis when configured so replicas see the same
	// counts; otherwise they are process-local.
	var redisClient *redis.Client
	var lockout *auth.LockoutTracker
	switch {
	case !cfg.LockoutEnabled:
		lockout = auth.NewDisabledLockoutTracker(logger)
		logger.Warn("account lockout disabled")
	case cfg.HasRedis():
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		lockout = auth.NewLockoutTracker(kv.NewRedisStore(redisClient), logger)
		logger.Info("account lockout enabled", "backend", "redis")
	default:
		lockout = auth.NewLockoutTracker(kv.NewMemoryStore(), logger)
		logger.Info("account lockout enabled", "backend", "memory")
	}

	sessionService := auth.NewSessionService(auth.SessionConfig{
		TTL:    cfg.SessionTTL,
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
	})

	var mailer auth.Mailer
	if cfg.HasSMTP() {
		mailer = notification.NewEmailSender(
			cfg.SMTPHost,
			cfg.SMTPPort,
			cfg.SMTPUser,
			cfg.SMTPPassword,
			cfg.SMTPFrom,
			logger,
		)
		logger.Info("email dispatch enabled")
	} else {
		logger.Warn("SMTP not configured, outbound email will be dropped")
	}

	authService := auth.NewService(auth.ServiceConfig{
		Logger:      logger,
		Users:       usersRepo,
		Invitations: auth.NewTokenStore(domain.TokenPurposeInvitation, auth.DefaultInvitationTTL, tokensRepo),
		Resets:      auth.NewTokenStore(domain.TokenPurposePasswordReset, auth.DefaultPasswordResetTTL, tokensRepo),
		MagicLinks:  auth.NewTokenStore(domain.TokenPurposeMagicLink, auth.DefaultMagicLinkTTL, tokensRepo),
		Lockout:     lockout,
		TOTP:        auth.NewTOTPEngine(cfg.TOTPIssuer),
		Sessions:    sessionService,
		Mailer:      mailer,
		Audit:       auditRepo,
		BaseURL:     cfg.AppBaseURL,
	})

	var uploader *storage.Uploader
	if cfg.HasS3() {
		uploader, err = storage.NewUploader(context.Background(), cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			logger.Error("failed to initialize uploader", "error", err)
			os.Exit(1)
		}
		logger.Info("upload pre-signing enabled", "bucket", cfg.S3Bucket)
	}

	// Expired single-use tokens are dead rows; sweep them in the background.
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go func() {
		ticker := time.NewTicker(tokenCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				n, err := tokensRepo.DeleteExpired(cleanupCtx, time.Now())
				if err != nil {
					logger.Error("token cleanup failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("expired tokens removed", "count", n)
				}
			}
		}
	}()

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:         logger,
		Config:         cfg,
		AuthService:    authService,
		SessionService: sessionService,
		UsersRepo:      usersRepo,
		VehiclesRepo:   vehiclesRepo,
		AuditRepo:      auditRepo,
		Uploader:       uploader,
		Redis:          redisClient,
		CookieSecure:   strings.HasPrefix(cfg.AppBaseURL, "https://"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
