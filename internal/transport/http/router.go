package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"tempmail/relay/internal/config"
	"tempmail/relay/internal/middleware"
	"tempmail/relay/internal/monitoring"
	"tempmail/relay/internal/service"
	"tempmail/relay/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	MailboxService *service.MailboxService
	MessageService *service.MessageService
	StreamHandler  *websocket.StreamHandler
	Metrics        *monitoring.Metrics
	CreateCounter  middleware.CreateCounter
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router.Use(middleware.RecoveryHandler(log, deps.Metrics))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(1 * 1024 * 1024))
	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := &Handler{
		mailboxes: deps.MailboxService,
		messages:  deps.MessageService,
		metrics:   deps.Metrics,
		log:       log,
	}

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// V1 API
	v1 := router.Group("/v1")
	{
		v1.GET("/domains", handler.listDomains)

		createLimit := middleware.CreateRateLimit(
			deps.CreateCounter, log,
			int64(deps.Config.RateLimit.CreatePerIP),
			deps.Config.RateLimit.Window,
		)
		v1.POST("/create", createLimit, handler.createMailbox)

		v1.GET("/messages", handler.listMessages)
		v1.GET("/message", handler.getMessage)
		v1.DELETE("/message", handler.deleteMessage)
		v1.POST("/delete", handler.deleteAccount)

		if deps.StreamHandler != nil {
			v1.GET("/ws", deps.StreamHandler.Handle())
		}
	}

	return router
}
