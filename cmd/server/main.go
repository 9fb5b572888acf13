package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/craftlink/craftlink-backend/internal/config"
	"github.com/craftlink/craftlink-backend/internal/db"
	httpHandlers "github.com/craftlink/craftlink-backend/internal/http/handlers"
	httpRouter "github.com/craftlink/craftlink-backend/internal/http/router"
	"github.com/craftlink/craftlink-backend/internal/logger"
	"github.com/craftlink/craftlink-backend/internal/repository"
	"github.com/craftlink/craftlink-backend/internal/service"
	"github.com/craftlink/craftlink-backend/internal/storage"
	"github.com/craftlink/craftlink-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера.
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Redis опционален: без него rate limit работает в памяти процесса.
	rdb := db.NewRedis(ctx, cfg.RedisAddr)
	if rdb == nil && cfg.RedisAddr != "" {
		log.Printf("main: redis %s недоступен, лимиты в памяти процесса", cfg.RedisAddr)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	fileStorage, err := storage.NewFileStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	walletRepo := repository.NewWalletRepository(dbConn)
	jobRepo := repository.NewJobRepository(dbConn)
	applicationRepo := repository.NewApplicationRepository(dbConn)
	submissionRepo := repository.NewSubmissionRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	ratingRepo := repository.NewRatingRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	mediaRepo := repository.NewMediaRepository(dbConn)
	adminRepo := repository.NewAdminRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo, hub)
	authService := service.NewAuthService(userRepo, walletRepo, tokenManager)
	walletService := service.NewWalletService(walletRepo)
	jobService := service.NewJobService(jobRepo, applicationRepo, notificationService)
	applicationService := service.NewApplicationService(applicationRepo, jobRepo, mediaRepo, notificationService)
	submissionService := service.NewSubmissionService(submissionRepo, jobRepo, notificationService)
	disputeService := service.NewDisputeService(disputeRepo, jobRepo)
	ratingService := service.NewRatingService(ratingRepo, jobRepo)
	adminService := service.NewAdminService(adminRepo, userRepo, disputeRepo, walletRepo)
	mediaService := service.NewMediaService(mediaRepo, fileStorage, userRepo)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	jobHandler := httpHandlers.NewJobHandler(jobService)
	applicationHandler := httpHandlers.NewApplicationHandler(applicationService)
	submissionHandler := httpHandlers.NewSubmissionHandler(submissionService)
	walletHandler := httpHandlers.NewWalletHandler(walletService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	ratingHandler := httpHandlers.NewRatingHandler(ratingService)
	adminHandler := httpHandlers.NewAdminHandler(adminService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	mediaHandler := httpHandlers.NewMediaHandler(mediaService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, rdb,
		authHandler, jobHandler, applicationHandler, submissionHandler,
		walletHandler, disputeHandler, ratingHandler, adminHandler,
		notificationHandler, mediaHandler, wsHandler, healthHandler,
		tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
