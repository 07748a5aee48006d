package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateCounter 统计单个 IP 在窗口内的创建次数。
// Redis 可用时用共享计数器，否则退回进程内实现。
type CreateCounter interface {
	IncrementCreateCount(ip string, window time.Duration) (int64, error)
}

// LocalCreateCounter 进程内的创建计数器（无 Redis 时的退路）。
type LocalCreateCounter struct {
	mu      sync.Mutex
	counts  map[string]int64
	resetAt map[string]time.Time
}

// NewLocalCreateCounter 创建进程内计数器。
func NewLocalCreateCounter() *LocalCreateCounter {
	return &LocalCreateCounter{
		counts:  make(map[string]int64),
		resetAt: make(map[string]time.Time),
	}
}

// IncrementCreateCount 递增计数，窗口到期时重新开窗。
func (c *LocalCreateCounter) IncrementCreateCount(ip string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if reset, ok := c.resetAt[ip]; !ok || now.After(reset) {
		c.counts[ip] = 0
		c.resetAt[ip] = now.Add(window)
	}
	c.counts[ip]++
	return c.counts[ip], nil
}

// CreateRateLimit 邮箱创建限流中间件。
// 计数器故障时放行：限流保护上游，不应成为单点。
func CreateRateLimit(counter CreateCounter, log *zap.Logger, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := counter.IncrementCreateCount(c.ClientIP(), window)
		if err != nil {
			log.Warn("rate limit counter unavailable", zap.Error(err))
			c.Next()
			return
		}

		if count > limit {
			log.Warn("create rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.Int64("count", count),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too_many_requests",
			})
			return
		}

		c.Next()
	}
}
