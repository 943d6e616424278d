package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/texperia/registration/auth"
	"github.com/texperia/registration/config"
	"github.com/texperia/registration/db"
	"github.com/texperia/registration/handlers"
	"github.com/texperia/registration/live"
	"github.com/texperia/registration/metrics"
	"github.com/texperia/registration/repositories"
	api "github.com/texperia/registration/routes"
	"github.com/texperia/registration/services"
	"github.com/texperia/registration/storage"
	"github.com/texperia/registration/templates"
	"github.com/texperia/registration/validation"
)

const (
	festName         = "TEXPERIA 2026"
	dbPoolInterval   = 15 * time.Second
	shutdownTimeout  = 15 * time.Second
	dbConnectTimeout = 5 * time.Second
)

func main() {
	// Конфигурация
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	if err := run(cfg, logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Каталог событий и список администраторов фиксируются при старте.
	catalog, err := cfg.EventCatalog()
	if err != nil {
		return err
	}
	resolver, err := auth.NewResolver(cfg.SuperAdmins, cfg.EventAdmins())
	if err != nil {
		return fmt.Errorf("admin directory: %w", err)
	}
	issuer, err := auth.NewIssuer(cfg.JWTSecretKey, cfg.TokenTTL)
	if err != nil {
		return err
	}
	deadline := services.ParseDeadline(cfg.RegistrationDeadline)
	if !deadline.Valid() {
		logger.Warn("registration deadline is unparseable, registration stays open",
			slog.String("deadline", cfg.RegistrationDeadline))
	}

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.Migrate(ctx, dbConn); err != nil {
		return err
	}
	logger.Info("database connection established")

	appMetrics := metrics.NewDefault()
	go appMetrics.WatchDBPool(ctx, dbConn, dbPoolInterval)

	// Хранилище квитанций (Cloudflare R2) необязательно.
	var uploader storage.FileUploader
	if cfg.StorageConfigured() {
		r2, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return err
		}
		uploader = r2
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage is not configured, receipt uploads are disabled")
	}

	// Почта
	var mailer services.Mailer
	if cfg.SMTPConfigured() {
		mailer = services.NewSMTPMailer(services.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			User:       cfg.SMTPUser,
			Pass:       cfg.SMTPPass,
			From:       cfg.SMTPFrom,
			SenderName: cfg.SMTPSenderName,
		})
	} else {
		logger.Warn("SMTP credentials missing, emails are only logged")
		mailer = services.NewLogMailer(logger)
	}
	renderer, err := templates.New()
	if err != nil {
		return err
	}
	adminEmail := cfg.AdminEmail
	if adminEmail == "" {
		adminEmail = cfg.SMTPUser
	}
	dispatcher := services.NewEmailDispatcher(services.DispatcherConfig{
		FestName:   festName,
		AdminEmail: adminEmail,
		QueueSize:  cfg.NotifyQueueSize,
		Workers:    cfg.NotifyWorkers,
	}, mailer, renderer, catalog, appMetrics, logger)
	dispatcher.Start()

	// WebSocket Hub живой ленты платежей
	hub := live.NewHub(appMetrics, logger)
	go hub.Run(ctx)
	var publisher services.PaymentEventPublisher = hub
	if cfg.RedisURL != "" {
		relay, err := live.NewRedisRelay(ctx, cfg.RedisURL, hub, logger)
		if err != nil {
			return err
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("redis relay stopped", slog.Any("error", err))
			}
		}()
		publisher = relay
		logger.Info("payment events relayed through redis")
	}

	// Репозитории
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	paymentRepo := repositories.NewPostgresPaymentRepository(dbConn)
	contactRepo := repositories.NewPostgresContactRepository(dbConn)
	statsRepo := repositories.NewPostgresStatsRepository(dbConn)
	transactor := repositories.NewTransactor(dbConn)
	validator := validation.New()

	// Сервисы
	authService := services.NewAuthService(userRepo, validator)
	teamService := services.NewTeamService(userRepo, teamRepo, paymentRepo, catalog, deadline, validator, logger)
	paymentService := services.NewPaymentService(services.PaymentServiceDeps{
		UserRepo:    userRepo,
		TeamRepo:    teamRepo,
		PaymentRepo: paymentRepo,
		Transactor:  transactor,
		Catalog:     catalog,
		Validator:   validator,
		Uploader:    uploader,
		Notifier:    dispatcher,
		Publisher:   publisher,
		Metrics:     appMetrics,
		Logger:      logger,
	})
	adminTeamService := services.NewAdminTeamService(userRepo, teamRepo, paymentRepo, transactor, uploader, logger)
	dashboardService := services.NewDashboardService(statsRepo, catalog)
	contactService := services.NewContactService(contactRepo, dispatcher, validator, logger)
	exportService := services.NewExportService(teamRepo, catalog)

	// Обработчики HTTP
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:      handlers.NewAuthHandler(authService, issuer),
		Team:      handlers.NewTeamHandler(teamService),
		Payment:   handlers.NewPaymentHandler(paymentService),
		Admin:     handlers.NewAdminHandler(adminTeamService, paymentService, dashboardService, contactService, exportService),
		Contact:   handlers.NewContactHandler(contactService),
		WebSocket: handlers.NewWebSocketHandler(hub, issuer, resolver, cfg.AllowedOrigins()),
		Health: handlers.NewHealthHandler(func(ctx context.Context) error {
			return db.Ping(ctx, dbConn)
		}),
	}, api.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		Tokens:         issuer,
		Resolver:       resolver,
		Instrument:     appMetrics.Middleware,
		Metrics:        appMetrics.Handler(),
		Logger:         logger,
	})
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
	}
	// Очередь писем дочищается после остановки приёма запросов.
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Warn("email queue not drained", slog.Any("error", err))
	}
	stop()
	logger.Info("server shutdown complete")
	return nil
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}
