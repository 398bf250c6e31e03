package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/danzhq/claimgate/internal/auth"
	"github.com/danzhq/claimgate/internal/background"
	"github.com/danzhq/claimgate/internal/config"
	"github.com/danzhq/claimgate/internal/database"
	"github.com/danzhq/claimgate/internal/handlers"
	middlewareCustom "github.com/danzhq/claimgate/internal/middleware"
	"github.com/danzhq/claimgate/internal/repositories"
	"github.com/danzhq/claimgate/internal/routes"
	"github.com/danzhq/claimgate/internal/services"
	pkghttp "github.com/danzhq/claimgate/pkg/http"
	pkglogger "github.com/danzhq/claimgate/pkg/logger"
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

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := db.Migrate(migrateCtx, cfg.Database.MigrationsDir); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	tokenRepo := repositories.NewClaimTokenRepository(db)
	linkRepo := repositories.NewLinkedAccountRepository(db)
	sponsorRepo := repositories.NewSponsorClaimRepository(db)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(tokenRepo, logger, cfg.Claim.CleanupInterval)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// AWS SES email service; claims still succeed if email is disabled
	var emailService services.EmailService
	if cfg.Email.Enabled {
		ses, err := services.NewAWSSESEmailService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailService = ses
	}

	// Initialize services
	verificationService, err := services.NewVerificationService(tokenRepo, logger)
	if err != nil {
		logger.Error("failed to initialize verification service", slog.Any("error", err))
		os.Exit(1)
	}
	linkService := services.NewLinkService(tokenRepo, linkRepo, accountRepo, emailService, db, logger, cfg.Claim.TokenExpiry, cfg.Claim.LinkBonusXP)
	sponsorService := services.NewSponsorService(tokenRepo, sponsorRepo, accountRepo, emailService, db, logger, cfg.Claim.TokenExpiry)
	authService := services.NewAuthService(accountRepo, tokenManager, logger, auditLogger)

	// Initialize handlers
	ipConfig := pkghttp.DefaultIPConfig()
	claimsHandler := handlers.NewClaimsHandler(verificationService, linkService, sponsorService, auditLogger, ipConfig, cfg.Server.PublicBaseURL)
	webhookHandler := handlers.NewWebhookHandler(linkService, sponsorService, cfg.Claim.WebhookSecret, cfg.Server.PublicBaseURL)
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	dashboardHandler := handlers.NewDashboardHandler(linkService, sponsorService)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, claimsHandler, webhookHandler, authHandler, dashboardHandler, tokenManager)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		stats := db.Stats()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","database":"up","pool":{"total_conns":%d,"idle_conns":%d}}`,
			stats.TotalConns(), stats.IdleConns())
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
