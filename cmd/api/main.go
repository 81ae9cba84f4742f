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

	"github.com/Diego-Toledo1/secure-smart-locker/internal/auth"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/background"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/config"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/database"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/handlers"
	middlewareCustom "github.com/Diego-Toledo1/secure-smart-locker/internal/middleware"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/repositories"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/routes"
	"github.com/Diego-Toledo1/secure-smart-locker/internal/services"
	pkghttp "github.com/Diego-Toledo1/secure-smart-locker/pkg/http"
	pkglogger "github.com/Diego-Toledo1/secure-smart-locker/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := pkglogger.New(os.Stdout, "info")
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("audit_sink", cfg.Audit.Sink),
	)

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	lockerRepo := repositories.NewLockerRepository(db)
	requestRepo := repositories.NewLockerRequestRepository(db)

	auditLogger := pkglogger.NewAuditLogger(logger)

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	sink, accessLogs, err := newAuditSink(initCtx, cfg, db, auditLogger, logger)
	if err != nil {
		initCancel()
		logger.Error("failed to initialize audit sink", slog.Any("error", err))
		os.Exit(1)
	}

	var notifier services.ExtensionNotifier = services.NewNoopNotifier(logger)
	if cfg.Email.Enabled {
		sesNotifier, err := services.NewSESNotifierFromConfig(initCtx, cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.AdminAddress, logger)
		if err != nil {
			initCancel()
			logger.Error("failed to initialize email notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}
	initCancel()

	ipResolver, err := pkghttp.NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid TRUSTED_PROXIES", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Auth.TimingDelayBase,
		RandomDelay: cfg.Auth.TimingDelayRandom,
	})

	// Initialize services
	authService := services.NewAuthService(userRepo, tokenManager, timingDelay, logger, auditLogger)
	lockerService := services.NewLockerService(lockerRepo, requestRepo, notifier, cfg.Locker, logger, auditLogger)
	accessService := services.NewAccessService(lockerRepo, sink, cfg.Audit.WriteTimeout, logger)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authService.EnsureAdmin(ctx, os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig()))
	router.Use(middlewareCustom.SecureLogger(logger, ipResolver))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router,
		routes.Handlers{
			Auth:     handlers.NewAuthHandler(authService, ipResolver),
			Locker:   handlers.NewLockerHandler(lockerService, logger),
			Security: handlers.NewSecurityHandler(accessService, ipResolver),
			Admin:    handlers.NewAdminHandler(lockerService, accessLogs),
		},
		tokenManager,
		userRepo,
		ipResolver,
		routes.Limits{
			AuthPerMinute:   cfg.Auth.RateLimitPerMinute,
			AccessPerMinute: cfg.Locker.AccessRateLimitPerMinute,
		},
		logger,
	)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}

		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start rental expiry sweep
	expiryCtx, expiryCancel := context.WithCancel(context.Background())
	defer expiryCancel()

	var expiryManager *background.ExpiryManager
	if cfg.Locker.ExpirySweepInterval > 0 {
		expiryManager = background.NewExpiryManager(lockerRepo, logger, auditLogger, cfg.Locker.ExpirySweepInterval)
		go expiryManager.Start(expiryCtx)
	}

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

	expiryCancel()
	if expiryManager != nil {
		expiryManager.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// newAuditSink selects the access-attempt sink. Only the PostgreSQL sink can
// be read back, so the returned reader is nil for the others.
func newAuditSink(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	auditLogger *pkglogger.AuditLogger,
	logger *slog.Logger,
) (services.AuditSink, handlers.AccessLogReader, error) {
	switch cfg.Audit.Sink {
	case config.AuditSinkDynamoDB:
		sink, err := services.NewDynamoDBAuditSinkFromConfig(ctx, cfg.Audit.Region, cfg.Audit.DynamoDBEndpoint, cfg.Audit.DynamoDBTable, logger)
		if err != nil {
			return nil, nil, err
		}
		return sink, nil, nil
	case config.AuditSinkPostgres:
		repo := repositories.NewAccessLogRepository(db)
		return repo, repo, nil
	case config.AuditSinkLog:
		return services.NewLogAuditSink(auditLogger), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown audit sink %q", cfg.Audit.Sink)
	}
}
