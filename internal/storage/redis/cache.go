package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache Redis 缓存实现
//
// 为可选部署：配置了 Redis 地址时替代进程内的域名目录缓存，
// 并为创建限流提供跨实例共享的计数器。
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// NewCache 创建 Redis 缓存实例并验证连接。
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, ctx: ctx}, nil
}

const domainCatalogKey = "provider:domains"

// GetDomains 读取缓存的提供商域名目录。
func (c *Cache) GetDomains() ([]string, bool) {
	data, err := c.client.Get(c.ctx, domainCatalogKey).Result()
	if err != nil {
		return nil, false
	}

	var domains []string
	if err := json.Unmarshal([]byte(data), &domains); err != nil {
		return nil, false
	}
	return domains, true
}

// SetDomains 写入提供商域名目录。
func (c *Cache) SetDomains(domains []string, ttl time.Duration) {
	data, err := json.Marshal(domains)
	if err != nil {
		return
	}
	_ = c.client.Set(c.ctx, domainCatalogKey, data, ttl).Err()
}

// IncrementCreateCount 递增单个 IP 在窗口内的创建计数。
// 首次递增时设置窗口过期，返回递增后的计数值。
func (c *Cache) IncrementCreateCount(ip string, window time.Duration) (int64, error) {
	key := fmt.Sprintf("ratelimit:create:%s", ip)

	count, err := c.client.Incr(c.ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = c.client.Expire(c.ctx, key, window).Err()
	}
	return count, nil
}

// Health 检查 Redis 连接。
func (c *Cache) Health() error {
	return c.client.Ping(c.ctx).Err()
}

// Close 关闭连接。
func (c *Cache) Close() error {
	return c.client.Close()
}
