package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mqcontracts "github.com/mlunin-git/coaching-platform-sub000/contracts/mq"
	"github.com/mlunin-git/coaching-platform-sub000/internal/config"
	"github.com/mlunin-git/coaching-platform-sub000/internal/mqhandler"
	"github.com/mlunin-git/coaching-platform-sub000/internal/repository"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/db"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/logger"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/mq"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/outbox"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/redis"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/util"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting coaching worker...")

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, time.Hour)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	log.Info("DB ready")

	// repositories
	notificationRepo := repository.NewNotificationRepository(dbConn, log)
	planningRepo := repository.NewPlanningRepository(dbConn, log)

	// publisher (outbox dispatcher + DLQ)
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	if err := publisher.SetupDLQ(
		mqcontracts.RoutingKeyMessageCreated,
		mqcontracts.RoutingKeyTaskAssigned,
		mqcontracts.RoutingKeyIdeaPromoted,
	); err != nil {
		log.Fatal("failed to declare DLQ", zap.Error(err))
	}

	// Init Outbox Dispatcher
	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	go dispatcher.Start(dispatcherCtx)

	// handlers
	messageHandler := mqhandler.NewMessageCreatedHandler(notificationRepo, rdb, publisher, retryCounter, deduper, log)
	taskHandler := mqhandler.NewTaskAssignedHandler(notificationRepo, rdb, publisher, retryCounter, deduper, log)
	ideaHandler := mqhandler.NewIdeaPromotedHandler(notificationRepo, planningRepo, rdb, publisher, retryCounter, deduper, log)

	// /metrics + /healthz
	ops := newOpsServer(cfg.Server.MetricsPort)
	go func() {
		log.Info("Metrics server starting", zap.String("addr", ops.Addr))
		if err := ops.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Metrics server failed", zap.Error(err))
		}
	}()

	// -------------------------
	// Message Created Consumer
	// -------------------------
	log.Info("Init consumer: message.created.q")
	messageConsumer, err := mq.NewConsumer(
		cfg.MQ.URL,
		"message.created.q",
		mqcontracts.RoutingKeyMessageCreated,
		log,
	)
	if err != nil {
		log.Fatal("Message consumer init failed", zap.Error(err))
	}
	messageConsumer.SetHandler(messageHandler.HandleMessageCreated)
	go func() {
		if err := messageConsumer.StartConsuming(); err != nil {
			log.Fatal("Message consumer crashed", zap.Error(err))
		}
	}()
	defer messageConsumer.Close()

	// -------------------------
	// Task Assigned Consumer
	// -------------------------
	log.Info("Init consumer: task.assigned.q")
	taskConsumer, err := mq.NewConsumer(
		cfg.MQ.URL,
		"task.assigned.q",
		mqcontracts.RoutingKeyTaskAssigned,
		log,
	)
	if err != nil {
		log.Fatal("Task consumer init failed", zap.Error(err))
	}
	taskConsumer.SetHandler(taskHandler.HandleTaskAssigned)
	go func() {
		if err := taskConsumer.StartConsuming(); err != nil {
			log.Fatal("Task consumer crashed", zap.Error(err))
		}
	}()
	defer taskConsumer.Close()

	// -------------------------
	// Idea Promoted Consumer
	// -------------------------
	log.Info("Init consumer: idea.promoted.q")
	ideaConsumer, err := mq.NewConsumer(
		cfg.MQ.URL,
		"idea.promoted.q",
		mqcontracts.RoutingKeyIdeaPromoted,
		log,
	)
	if err != nil {
		log.Fatal("Idea consumer init failed", zap.Error(err))
	}
	ideaConsumer.SetHandler(ideaHandler.HandleIdeaPromoted)
	go func() {
		if err := ideaConsumer.StartConsuming(); err != nil {
			log.Fatal("Idea consumer crashed", zap.Error(err))
		}
	}()
	defer ideaConsumer.Close()

	log.Info("Worker running")

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down coaching worker gracefully...")

	dispatcherCancel()

	// 停止所有消费者
	log.Info("Stopping MQ consumers...")
	messageConsumer.Stop()
	taskConsumer.Stop()
	ideaConsumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server shutdown error", zap.Error(err))
	}

	log.Info("Coaching worker shutdown complete")
}
