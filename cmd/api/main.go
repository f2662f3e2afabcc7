package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"deepgpt/internal/config"
	apihttp "deepgpt/internal/http"
	"deepgpt/internal/llm"
	"deepgpt/internal/repository"
	"deepgpt/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	store, err := repository.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer store.Close()

	registry := llm.NewRegistry(cfg, logger)
	locker := service.NewSessionLocker()
	contextSvc := service.NewTaggedContextService(store.Messages, cfg.HistoryWindow)
	chatSvc := service.NewChatService(logger, store.Sessions, store.Messages, contextSvc, registry, locker)
	historySvc := service.NewHistoryService(store.Sessions, store.Messages, locker)

	var redisClient *redis.Client
	if cfg.ChatRateLimit > 0 && cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory rate limiter", zap.Error(err))
			redisClient = nil
		}
		cancel()
	}
	if limiter := service.NewChatRateLimiterFromConfig(cfg, redisClient, logger); limiter != nil {
		chatSvc.WithRateLimiter(limiter)
		logger.Info("chat rate limit enabled",
			zap.Int("limit", cfg.ChatRateLimit),
			zap.Int("window_seconds", cfg.ChatRateWindowSeconds),
			zap.Bool("redis", redisClient != nil),
		)
	}

	chatHandler := apihttp.NewChatHandler(logger, chatSvc, historySvc, registry)
	router := apihttp.NewRouter(logger, chatHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("store", store.Backend),
		zap.Bool("deepseek_available", registry.Available("deepseek")),
		zap.Bool("qwen_available", registry.Available("qwen")),
		zap.Bool("kimi_available", registry.Available("kimi")),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
