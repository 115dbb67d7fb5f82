package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/claimsdesk/internal/auth"
	"github.com/BradenHooton/claimsdesk/internal/background"
	"github.com/BradenHooton/claimsdesk/internal/config"
	"github.com/BradenHooton/claimsdesk/internal/database"
	"github.com/BradenHooton/claimsdesk/internal/handlers"
	"github.com/BradenHooton/claimsdesk/internal/integrations"
	middlewareCustom "github.com/BradenHooton/claimsdesk/internal/middleware"
	"github.com/BradenHooton/claimsdesk/internal/repositories"
	"github.com/BradenHooton/claimsdesk/internal/routes"
	"github.com/BradenHooton/claimsdesk/internal/services"
	pkghttp "github.com/BradenHooton/claimsdesk/pkg/http"
	pkglogger "github.com/BradenHooton/claimsdesk/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Token denylist. Without Redis, logout only clears cookies.
	var (
		revokeRepo    services.TokenRevocationRepository
		revokeChecker auth.TokenRevocationChecker
		cacheHealth   handlers.HealthChecker
	)
	redisClient, err := database.NewRedis(&cfg.Redis, logger)
	if err != nil {
		if cfg.Server.Env == "production" {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Warn("redis unavailable, token revocation disabled", slog.Any("error", err))
	} else {
		defer redisClient.Close()
		denylist := repositories.NewTokenRevocationRepository(redisClient)
		revokeRepo, revokeChecker = denylist, denylist
		cacheHealth = database.RedisChecker{Client: redisClient}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	policyRepo := repositories.NewPolicyRepository(db)
	holderRepo := repositories.NewPolicyholderRepository(db)
	requestRepo := repositories.NewPolicyRequestRepository(db, cfg.Outbox.MaxAttempts)
	claimRepo := repositories.NewClaimRepository(db, cfg.Outbox.MaxAttempts)
	outboxRepo := repositories.NewOutboxRepository(db, cfg.Outbox.MaxAttempts)

	// External collaborators
	awsCtx, awsCancel := context.WithTimeout(context.Background(), 10*time.Second)
	dispatcher, documents, insights := buildIntegrations(awsCtx, cfg, logger)
	awsCancel()

	// Initialize services
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)

	authService := services.NewAuthService(userRepo, tokenManager, revokeRepo, outboxRepo, services.AuthSettings{
		AdminRegistrationKey: cfg.Auth.AdminRegistrationKey,
		ResetTokenExpiry:     cfg.Auth.ResetTokenExpiry,
		FrontendURL:          cfg.Server.FrontendURL,
	}, logger, auditLogger)
	userService := services.NewUserService(userRepo, holderRepo, outboxRepo, 0, logger, auditLogger)
	policyService := services.NewPolicyService(policyRepo, holderRepo, outboxRepo, logger, auditLogger)
	requestService := services.NewPolicyRequestService(requestRepo, userRepo, policyRepo, holderRepo, logger, auditLogger)
	claimService := services.NewClaimService(claimRepo, policyRepo, userRepo, outboxRepo, documents, logger, auditLogger)
	adminService := services.NewAdminService(userRepo, policyRepo, requestRepo, claimRepo, logger)
	engagementService := services.NewEngagementService(outboxRepo, insights, logger)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := authService.BootstrapAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName)
	cancel()
	switch {
	case err != nil:
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	case created:
		logger.Info("admin user created", slog.String("email", pkglogger.SanitizedEmail(cfg.Bootstrap.AdminEmail)))
	}

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	cookies := auth.CookieConfig{Secure: cfg.Auth.CookieSecure, SameSite: cfg.Auth.CookieSameSite}

	h := routes.Handlers{
		Health:     handlers.NewHealthHandler(db, cacheHealth),
		Auth:       handlers.NewAuthHandler(authService, cookies, ipConfig, logger),
		Users:      handlers.NewUserHandler(userService),
		Policies:   handlers.NewPolicyHandler(policyService),
		Requests:   handlers.NewPolicyRequestHandler(requestService),
		Claims:     handlers.NewClaimHandler(claimService),
		Admin:      handlers.NewAdminHandler(adminService),
		Engagement: handlers.NewEngagementHandler(engagementService),
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, h, routes.Config{
		TokenManager:   tokenManager,
		Revocation:     revokeChecker,
		RevocationMode: auth.RevocationConfig{FailClosed: cfg.Server.Env == "production"},
		AuthRateLimit:  middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.AuthRateLimit, IPConfig: ipConfig},
		UserRateLimit:  middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.UserRateLimit, IPConfig: ipConfig},
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	outboxWorker := background.NewOutboxWorker(outboxRepo, dispatcher, cfg.Outbox, logger)
	cleanupManager := background.NewCleanupManager(outboxRepo, userRepo, cfg.Outbox.Retention, logger, cfg.Auth.CleanupInterval)
	go outboxWorker.Start(workerCtx)
	go cleanupManager.Start(workerCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	outboxWorker.Stop()
	cleanupManager.Stop()
	workerCancel()

	logger.Info("server stopped gracefully")
}

// buildIntegrations returns the outbox dispatcher, the document presigner and
// the profile insights reader. Unconfigured integrations fall back to no-op
// implementations; a nil presigner or reader disables that feature.
func buildIntegrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*background.Dispatcher, services.DocumentPresigner, services.ProfileInsightsReader) {
	var (
		mailer    background.Mailer        = integrations.NewLogMailer(logger)
		profiles  background.ProfileSync   = integrations.NoopProfileSync{}
		marketing background.Marketing     = integrations.NoopMarketing{}
		generator background.TextGenerator = integrations.NoopGenerator{}
		documents services.DocumentPresigner
		insights  services.ProfileInsightsReader
	)

	awsCfg, err := integrations.LoadAWSConfig(ctx, cfg.Email.AWSRegion)
	if err != nil {
		logger.Warn("AWS configuration unavailable, email and document uploads disabled", slog.Any("error", err))
	} else {
		mailer = integrations.NewSESMailer(awsCfg, cfg.Email.FromAddress, logger)
		if cfg.Documents.Enabled() {
			documents = integrations.NewDocumentStore(awsCfg, cfg.Documents)
		} else {
			logger.Info("document uploads disabled, DOCUMENTS_BUCKET not set")
		}
	}

	if cfg.ProfileSync.Enabled() {
		unomi := integrations.NewUnomiClient(cfg.ProfileSync)
		profiles, insights = unomi, unomi
	} else {
		logger.Info("profile sync disabled, UNOMI_API_URL not set")
	}
	if cfg.Marketing.Enabled() {
		marketing = integrations.NewMauticClient(cfg.Marketing)
	} else {
		logger.Info("marketing sync disabled, MAUTIC_BASE_URL not set")
	}
	if cfg.LLM.Enabled() {
		generator = integrations.NewGeminiClient(cfg.LLM)
	} else {
		logger.Info("text generation disabled, GEMINI_API_KEY not set")
	}

	return background.NewDispatcher(mailer, profiles, marketing, generator, logger), documents, insights
}
