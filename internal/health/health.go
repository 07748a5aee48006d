package health

import (
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"
)

// CacheChecker 可选的缓存健康检查（Redis 部署时）。
type CacheChecker interface {
	Health() error
}

// HealthChecker 健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器。
//
// 就绪检查依赖上游提供商的 /domains 可达性；cache 为 nil 时
// 跳过 Redis 检查。
func NewHealthChecker(providerBaseURL string, cache CacheChecker, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		logger: logger,
	}

	// 上游不可达时实例不应接收流量
	hc.health.AddReadinessCheck("provider",
		healthcheck.HTTPGetCheck(providerBaseURL+"/domains", 5*time.Second))

	if cache != nil {
		hc.health.AddLivenessCheck("redis", cache.Health)
	}

	// goroutine 泄漏哨兵
	hc.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(500))

	return hc
}

// LiveHandler 返回存活检查处理器
func (hc *HealthChecker) LiveHandler() http.Handler {
	return http.HandlerFunc(hc.health.LiveEndpoint)
}

// ReadyHandler 返回就绪检查处理器
func (hc *HealthChecker) ReadyHandler() http.Handler {
	return http.HandlerFunc(hc.health.ReadyEndpoint)
}
