package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalCache(t *testing.T) {
	t.Run("设置后可以读取", func(t *testing.T) {
		c := NewLocalCache(time.Minute)
		defer c.Close()

		c.Set("key", "value", 0)

		val, ok := c.Get("key")
		assert.True(t, ok)
		assert.Equal(t, "value", val)
	})

	t.Run("过期条目读取时被剔除", func(t *testing.T) {
		c := NewLocalCache(time.Minute)
		defer c.Close()

		c.Set("key", "value", 10*time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		_, ok := c.Get("key")
		assert.False(t, ok)
	})

	t.Run("删除后不可读取", func(t *testing.T) {
		c := NewLocalCache(time.Minute)
		defer c.Close()

		c.Set("key", "value", 0)
		c.Delete("key")

		_, ok := c.Get("key")
		assert.False(t, ok)
	})

	t.Run("不存在的键返回未命中", func(t *testing.T) {
		c := NewLocalCache(time.Minute)
		defer c.Close()

		_, ok := c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("重复关闭是安全的", func(t *testing.T) {
		c := NewLocalCache(time.Minute)
		c.Close()
		c.Close()
	})
}

func TestDomainCatalog(t *testing.T) {
	t.Run("目录写入后可以读回", func(t *testing.T) {
		catalog := NewDomainCatalog(time.Minute)
		defer catalog.Close()

		catalog.SetDomains([]string{"a.test", "b.test"}, time.Minute)

		domains, ok := catalog.GetDomains()
		assert.True(t, ok)
		assert.Equal(t, []string{"a.test", "b.test"}, domains)
	})

	t.Run("空目录未命中", func(t *testing.T) {
		catalog := NewDomainCatalog(time.Minute)
		defer catalog.Close()

		_, ok := catalog.GetDomains()
		assert.False(t, ok)
	})

	t.Run("目录按TTL过期", func(t *testing.T) {
		catalog := NewDomainCatalog(time.Minute)
		defer catalog.Close()

		catalog.SetDomains([]string{"a.test"}, 10*time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		_, ok := catalog.GetDomains()
		assert.False(t, ok)
	})
}
