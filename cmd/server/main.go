package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tempmail/relay/internal/cache"
	"tempmail/relay/internal/config"
	"tempmail/relay/internal/health"
	"tempmail/relay/internal/logger"
	"tempmail/relay/internal/middleware"
	"tempmail/relay/internal/monitoring"
	"tempmail/relay/internal/provider"
	"tempmail/relay/internal/service"
	redisstore "tempmail/relay/internal/storage/redis"
	httptransport "tempmail/relay/internal/transport/http"
	"tempmail/relay/internal/websocket"
)

// main 启动邮箱代理 HTTP 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting tempmail relay",
		zap.String("provider", cfg.Provider.BaseURL),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 域名目录缓存与创建计数器：配置了 Redis 时共享，否则进程内
	var (
		catalog      service.DomainCache
		counter      middleware.CreateCounter
		cacheChecker health.CacheChecker
	)
	if cfg.Redis.Address != "" {
		redisCache, err := redisstore.NewCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			panic(fmt.Sprintf("failed to connect to redis: %v", err))
		}
		defer redisCache.Close()
		catalog = redisCache
		counter = redisCache
		cacheChecker = redisCache
		log.Info("using redis cache", zap.String("address", cfg.Redis.Address))
	} else {
		localCatalog := cache.NewDomainCatalog(cfg.Provider.CatalogTTL)
		defer localCatalog.Close()
		catalog = localCatalog
		counter = middleware.NewLocalCreateCounter()
		log.Info("using in-process cache")
	}

	// 初始化监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(cfg.Provider.BaseURL, cacheChecker, log)

	// 初始化提供商客户端与服务层
	providerClient := provider.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.RequestTimeout,
		provider.WithLogger(log),
		provider.WithRateLimit(cfg.Provider.RequestsPerSec),
		provider.WithMetrics(metrics),
	)

	mailboxService := service.NewMailboxService(providerClient, cfg, catalog, log)
	mailboxService.SetMetrics(metrics)
	messageService := service.NewMessageService(providerClient, log)

	streamHandler := websocket.NewStreamHandler(
		messageService,
		cfg.Poll.Interval,
		cfg.CORS.AllowedOrigins,
		metrics,
		log,
	)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		MailboxService: mailboxService,
		MessageService: messageService,
		StreamHandler:  streamHandler,
		Metrics:        metrics,
		CreateCounter:  counter,
		Logger:         log,
	})

	router.GET("/health/live", gin.WrapH(healthChecker.LiveHandler()))
	router.GET("/health/ready", gin.WrapH(healthChecker.ReadyHandler()))
	router.GET("/metrics", gin.WrapH(metrics.HTTPHandler()))

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
	_ = log.Sync()
}
