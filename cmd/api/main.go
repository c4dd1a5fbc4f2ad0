package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/config"
	"github.com/mlunin-git/coaching-platform-sub000/internal/csrf"
	"github.com/mlunin-git/coaching-platform-sub000/internal/handler"
	"github.com/mlunin-git/coaching-platform-sub000/internal/httpserver"
	"github.com/mlunin-git/coaching-platform-sub000/internal/ratelimit"
	"github.com/mlunin-git/coaching-platform-sub000/internal/realtime"
	"github.com/mlunin-git/coaching-platform-sub000/internal/repository"
	"github.com/mlunin-git/coaching-platform-sub000/internal/service"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/db"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/logger"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting coaching API...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// repositories
	userRepo := repository.NewUserRepository(dbConn)
	clientRepo := repository.NewClientRepository(dbConn, log)
	taskRepo := repository.NewTaskRepository(dbConn, log)
	messageRepo := repository.NewMessageRepository(dbConn, log)
	notificationRepo := repository.NewNotificationRepository(dbConn, log)
	planningRepo := repository.NewPlanningRepository(dbConn, log)
	wheelRepo := repository.NewWheelRepository(dbConn, log)

	// services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret)
	clientService := service.NewClientService(clientRepo)
	taskService := service.NewTaskService(dbConn, taskRepo, clientRepo, log)
	messageService := service.NewMessageService(dbConn, messageRepo, userRepo, rdb, log)
	planningService := service.NewPlanningService(planningRepo, cfg.Planning.TokenSalt, log)
	notificationService := service.NewNotificationService(notificationRepo)
	wheelService := service.NewWheelService(wheelRepo, clientRepo)

	// CSRF store with background sweeper
	csrfStore := csrf.NewStore(time.Duration(cfg.CSRF.TTLSeconds) * time.Second)
	stopSweeper := make(chan struct{})
	go csrfStore.StartSweeper(time.Minute, stopSweeper)

	// login rate limiter (single-process sliding window)
	loginLimiter := ratelimit.NewSlidingWindow(
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		cfg.RateLimit.MaxRequests,
	)
	stopCleanup := make(chan struct{})
	go loginLimiter.StartCleanup(time.Minute, stopCleanup)

	// realtime hub + Redis pub/sub bridge
	hub := realtime.NewHub()
	bridge := realtime.NewBridge(rdb, hub, log)
	bridgeCtx, bridgeCancel := context.WithCancel(context.Background())
	go func() {
		if err := bridge.Run(bridgeCtx); err != nil && bridgeCtx.Err() == nil {
			log.Error("Realtime bridge stopped", zap.Error(err))
		}
	}()

	// handlers
	handlers := httpserver.Handlers{
		Auth:         handler.NewAuthHandler(authService, csrfStore, loginLimiter, log),
		Client:       handler.NewClientHandler(clientService, log),
		Task:         handler.NewTaskHandler(taskService, log),
		Message:      handler.NewMessageHandler(messageService, log),
		Planning:     handler.NewPlanningHandler(planningService, log),
		Notification: handler.NewNotificationHandler(notificationService, log),
		Wheel:        handler.NewWheelHandler(wheelService, log),
		Realtime:     handler.NewRealtimeHandler(hub, messageService, loginLimiter, log),
	}

	router := httpserver.NewRouter(handlers, cfg.JWT.Secret, log, dbConn, rdb)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("Coaching API is fully initialized and running",
		zap.String("http_addr", cfg.Server.Port),
	)

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down coaching API gracefully...")

	bridgeCancel()
	close(stopSweeper)
	close(stopCleanup)

	// 关闭 HTTP 服务器
	log.Info("Shutting down HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// 关闭数据库连接
	log.Info("Closing database connection...")
	dbConn.Close()

	log.Info("Coaching API shutdown complete")
}
