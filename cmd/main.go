package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/Dosada05/futside/config"
	"github.com/Dosada05/futside/db"
	"github.com/Dosada05/futside/handlers"
	"github.com/Dosada05/futside/notify"
	"github.com/Dosada05/futside/realtime"
	"github.com/Dosada05/futside/repositories"
	api "github.com/Dosada05/futside/routes"
	"github.com/Dosada05/futside/services"
	"github.com/Dosada05/futside/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// Live-публикации: MQTT для мобильных клиентов + WebSocket Hub для браузеров.
	mqttPublisher := realtime.NewMQTTPublisher(realtime.MQTTPublisherConfig{
		BrokerHost:     cfg.MQTTBrokerHost,
		BrokerPort:     cfg.MQTTBrokerPort,
		ClientID:       cfg.MQTTClientID,
		ConnectTimeout: cfg.MQTTConnectTimeout,
	}, logger)
	defer mqttPublisher.Close()

	wsHub := realtime.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	publisher := realtime.NewFanout(mqttPublisher, wsHub)

	// Инициализация репозиториев
	txRunner := repositories.NewSQLTxRunner(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	fieldRepo := repositories.NewPostgresFieldRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	subscriptionRepo := repositories.NewPostgresSubscriptionRepository(dbConn)
	logger.Info("Repositories initialized")

	// Push-рассылка: FCM, либо заглушка, если креды не заданы.
	var sender notify.Sender
	if cfg.FirebaseCredentialsFile != "" {
		fcmSender, err := notify.NewFCMSender(context.Background(), cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Error("failed to initialize FCM sender", slog.Any("error", err))
			os.Exit(1)
		}
		sender = fcmSender
		logger.Info("FCM sender initialized")
	} else {
		sender = notify.NewDisabledSender()
		logger.Warn("FIREBASE_CREDENTIALS_FILE is not set, push delivery disabled")
	}

	resolver := notify.NewRegionResolver(subscriptionRepo, userRepo)
	dispatcher := notify.NewDispatcher(userRepo, sender, logger)
	pushPool := notify.NewPool(cfg.PushWorkers, cfg.PushQueueSize, cfg.PushJobTimeout, logger)
	notifyService := notify.NewService(pushPool, dispatcher, resolver, logger)
	logger.Info("Notification pipeline initialized",
		slog.Int("workers", cfg.PushWorkers), slog.Int("queue_size", cfg.PushQueueSize))

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo, subscriptionRepo, logger)
	userService := services.NewUserService(txRunner, userRepo)
	fieldService := services.NewFieldService(fieldRepo, cloudflareUploader, logger)
	subscriptionService := services.NewSubscriptionService(subscriptionRepo)
	matchService := services.NewMatchService(
		txRunner,
		matchRepo,
		fieldRepo,
		userRepo,
		playerRepo,
		publisher,
		notifyService,
		logger,
	)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	userHandler := handlers.NewUserHandler(userService)
	fieldHandler := handlers.NewFieldHandler(fieldService)
	matchHandler := handlers.NewMatchHandler(matchService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		userHandler,
		fieldHandler,
		matchHandler,
		subscriptionHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// os.Exit пропускает defer-ы, поэтому на аварийных путях фоновые
	// push-задачи и MQTT-соединение закрываются явно.
	drainBackground := func() {
		pushPool.Shutdown()
		mqttPublisher.Close()
	}

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			drainBackground()
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			drainBackground()
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}

	// Дожидаемся фоновых push-задач перед выходом.
	pushPool.Shutdown()
	logger.Info("application exited")
}
