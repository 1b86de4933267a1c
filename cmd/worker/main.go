package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/netai/social-api/internal/config"
	"github.com/netai/social-api/internal/workers"
	"github.com/netai/social-api/pkg/cache"
	"github.com/netai/social-api/pkg/logger"
	"github.com/netai/social-api/pkg/queue"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger := logger.NewLogger(cfg.Log.Level)
	logger.Info("Starting profile cache worker...")

	// 初始化Redis缓存
	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	// 初始化Kafka消费者
	consumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.SocialEvents, cfg.Kafka.GroupID)

	worker := workers.NewProfileWorker(consumer, redisClient, logger)

	go func() {
		if err := worker.Start(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("Profile worker stopped with error")
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()

	if err := worker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop profile worker")
	}

	logger.Info("Worker exited")
}
