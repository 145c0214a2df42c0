package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/tournament-arena/config"
	"github.com/Dosada05/tournament-arena/db"
	"github.com/Dosada05/tournament-arena/handlers"
	"github.com/Dosada05/tournament-arena/hub"
	"github.com/Dosada05/tournament-arena/logging"
	"github.com/Dosada05/tournament-arena/metrics"
	"github.com/Dosada05/tournament-arena/middleware"
	"github.com/Dosada05/tournament-arena/repositories"
	"github.com/Dosada05/tournament-arena/repositories/memory"
	api "github.com/Dosada05/tournament-arena/routes"
	"github.com/Dosada05/tournament-arena/services"
	"github.com/Dosada05/tournament-arena/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// @title Tournament Arena API
// @version 1.0
// @description eSports tournaments with a coin wallet.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	logger.Info("configuration loaded", zap.Int("port", cfg.ServerPort), zap.String("store", cfg.Store))

	if err := run(cfg, logger); err != nil {
		logger.Error("application failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repositories.Store
	switch cfg.Store {
	case config.StorePostgres:
		// Подключение к базе данных
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", zap.Error(err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		if err := db.Migrate(ctx, dbConn); err != nil {
			return err
		}
		store = repositories.NewPostgresStore(dbConn)
		logger.Info("database connection established")
	default:
		store = memory.NewStore()
		logger.Warn("using in-memory store, data is lost on restart")
	}

	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		u, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		uploader = u
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 is not configured, banner and logo uploads are disabled")
	}

	var mailer services.DecisionMailer
	if cfg.SMTPEnabled() {
		mailer = services.NewEmailService(cfg)
		logger.Info("SMTP mailer configured", zap.String("host", cfg.SMTPHost))
	}

	m := metrics.New()

	// Инициализация WebSocket Hub
	wsHub := hub.New(logger)
	go wsHub.Run(ctx)

	// Инициализация сервисов
	clock := services.Clock(time.Now)
	roles := services.StaticRoleKeys{Staff: cfg.StaffRoleKey, Admin: cfg.AdminRoleKey}
	authService := services.NewAuthService(store.Users(), roles, logger, clock)
	userService := services.NewUserService(store.Users(), logger)
	categoryService := services.NewCategoryService(store.Categories())
	tournamentService := services.NewTournamentService(store, uploader, wsHub, logger, clock)
	settlementService := services.NewSettlementService(store, wsHub, mailer, m, logger, clock)
	walletService := services.NewWalletService(store, logger, clock)
	teamService := services.NewTeamService(store, uploader, logger, clock)
	inviteService := services.NewInviteService(store, logger, clock)
	pointsService := services.NewPointsService(store, wsHub, logger, clock)
	dashboardService := services.NewDashboardService(store)
	logger.Info("services initialized")

	// Запуск планировщика отмены просроченных турниров
	sweeper, err := services.StartSweeper(ctx, tournamentService, cfg.SweepInterval, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sweeper.Shutdown(); err != nil {
			logger.Error("failed to stop sweeper", zap.Error(err))
		}
	}()

	// Инициализация обработчиков HTTP
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:       handlers.NewAuthHandler(authService, cfg.JWTSecretKey, cfg.TokenTTL, cfg.CookieSecure),
		User:       handlers.NewUserHandler(userService, tournamentService),
		Admin:      handlers.NewAdminHandler(userService),
		Dashboard:  handlers.NewDashboardHandler(dashboardService),
		Wallet:     handlers.NewWalletHandler(walletService, settlementService),
		Category:   handlers.NewCategoryHandler(categoryService),
		Tournament: handlers.NewTournamentHandler(tournamentService, settlementService, pointsService),
		Team:       handlers.NewTeamHandler(teamService, inviteService),
		Invite:     handlers.NewInviteHandler(inviteService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, tournamentService, cfg.CORSAllowedOrigins, logger),
	}, api.Options{
		Authenticator:  middleware.NewAuthenticator(cfg.JWTSecretKey, authService, logger),
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     zap.NewStdLog(logger.Named("http_server")),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", zap.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", zap.Error(closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	return nil
}
