package cache

import (
	"sync"
	"time"
)

// LocalCache 本地内存缓存
//
// 特点：
// - 使用 sync.Map 实现无锁读取
// - 支持 TTL 过期
// - 自动清理过期条目
type LocalCache struct {
	data sync.Map
	ttl  time.Duration
	stop chan struct{}
	once sync.Once
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewLocalCache 创建本地缓存，ttl 为默认过期时间。
func NewLocalCache(ttl time.Duration) *LocalCache {
	c := &LocalCache{
		ttl:  ttl,
		stop: make(chan struct{}),
	}

	// 启动定期清理
	go c.cleanupLoop()

	return c
}

// Get 获取缓存值
func (c *LocalCache) Get(key string) (interface{}, bool) {
	val, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}

	entry := val.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.data.Delete(key)
		return nil, false
	}

	return entry.value, true
}

// Set 设置缓存值，ttl 为 0 时使用默认过期时间。
func (c *LocalCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}

	c.data.Store(key, &cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
}

// Delete 删除缓存值
func (c *LocalCache) Delete(key string) {
	c.data.Delete(key)
}

// Close 停止后台清理
func (c *LocalCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanupLoop 定期清理过期条目
func (c *LocalCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.data.Range(func(key, val interface{}) bool {
				if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
					c.data.Delete(key)
				}
				return true
			})
		}
	}
}

const domainCatalogKey = "provider:domains"

// DomainCatalog 用本地缓存保存提供商的域名目录。
type DomainCatalog struct {
	cache *LocalCache
}

// NewDomainCatalog 创建域名目录缓存。
func NewDomainCatalog(ttl time.Duration) *DomainCatalog {
	return &DomainCatalog{cache: NewLocalCache(ttl)}
}

// GetDomains 读取缓存的域名目录。
func (d *DomainCatalog) GetDomains() ([]string, bool) {
	val, ok := d.cache.Get(domainCatalogKey)
	if !ok {
		return nil, false
	}
	domains, ok := val.([]string)
	return domains, ok
}

// SetDomains 写入域名目录。
func (d *DomainCatalog) SetDomains(domains []string, ttl time.Duration) {
	d.cache.Set(domainCatalogKey, domains, ttl)
}

// Close 释放后台资源。
func (d *DomainCatalog) Close() {
	d.cache.Close()
}
