package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netai/social-api/internal/config"
	"github.com/netai/social-api/internal/handlers"
	"github.com/netai/social-api/internal/repository"
	"github.com/netai/social-api/internal/services"
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
	logger.Info("Starting social API server...")

	// 初始化数据库
	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// 自动迁移数据库表
	if err := db.AutoMigrate(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	// 初始化Redis缓存
	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	// 检查Redis连接
	ctx := context.Background()
	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	// 初始化Kafka生产者
	producer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.SocialEvents)
	defer producer.Close()

	store := repository.NewStore(db.DB,
		repository.WithIsolation(cfg.Database.TxIsolation),
		repository.WithMaxRetries(cfg.Database.TxMaxRetries),
	)

	// 初始化服务
	pageSize := cfg.Pagination.PageSize
	activityService := services.NewActivityService(store, pageSize, logger)
	cascade := services.NewCascadeEngine(activityService, logger)
	userService := services.NewUserService(store, activityService, cascade, producer, redisClient, &cfg.User, logger)
	postService := services.NewPostService(store, activityService, cascade, producer, redisClient, pageSize, logger)
	commentService := services.NewCommentService(store, activityService, cascade, producer, redisClient, pageSize, logger)
	replyService := services.NewReplyService(store, activityService, cascade, producer, redisClient, pageSize, logger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := &handlers.Router{
		Users:         handlers.NewUserHandler(userService),
		Posts:         handlers.NewPostHandler(postService),
		Comments:      handlers.NewCommentHandler(commentService, replyService),
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Logger:        logger,
	}

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func init() {
	if err := os.MkdirAll("configs", 0755); err != nil {
		log.Printf("Failed to create directory configs: %v", err)
	}

	// 创建默认配置文件（如果不存在）
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := createDefaultConfig(configPath); err != nil {
			log.Printf("Failed to create default config: %v", err)
		}
	}
}

func createDefaultConfig(path string) error {
	defaultConfig := `server:
  port: ":5000"
  mode: "debug"
  read_timeout: 30s
  write_timeout: 30s
  allowed_origin: "*"

database:
  driver: "postgres"
  host: "localhost"
  port: 5432
  user: "social"
  password: "social"
  dbname: "social"
  sslmode: "disable"
  max_open_conns: 50
  max_idle_conns: 10
  log_level: "warn"
  tx_isolation: "serializable"
  tx_max_retries: 3

redis:
  host: "localhost"
  port: 6379
  password: ""
  db: 0
  pool_size: 20
  min_idle_conns: 2

kafka:
  brokers:
    - "localhost:9092"
  topics:
    social_events: "social-events"
  group_id: "profile-cache-worker"

user:
  username_change_interval: 336h  # 14天
  profile_cache_ttl: 10m
  bcrypt_cost: 10
  suggested_limit: 4

pagination:
  page_size: 10

log:
  level: "info"`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}
