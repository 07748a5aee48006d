package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("加载默认配置成功", func(t *testing.T) {
		cfg, err := Load()

		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "https://api.mail.tm", cfg.Provider.BaseURL)
		assert.Equal(t, 15*time.Second, cfg.Provider.RequestTimeout)
		assert.Equal(t, 5.0, cfg.Provider.RequestsPerSec)
		assert.Equal(t, []string{"mail.tm"}, cfg.Provider.FallbackDomains)
		assert.Equal(t, 10*time.Minute, cfg.Provider.CatalogTTL)
		assert.Equal(t, 5, cfg.Creation.MaxAttempts)
		assert.Equal(t, 12, cfg.Creation.LocalPartLength)
		assert.Equal(t, 16, cfg.Creation.PasswordLength)
		assert.Equal(t, 3*time.Second, cfg.Poll.Interval)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
		assert.Empty(t, cfg.Redis.Address)
		assert.Equal(t, 30, cfg.RateLimit.CreatePerIP)
		assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	})

	t.Run("环境变量覆盖默认值", func(t *testing.T) {
		t.Setenv("TEMPMAIL_SERVER_HOST", "127.0.0.1")
		t.Setenv("TEMPMAIL_SERVER_PORT", "9090")
		t.Setenv("TEMPMAIL_PROVIDER_BASE_URL", "https://api.example.test")
		t.Setenv("TEMPMAIL_PROVIDER_REQUEST_TIMEOUT", "30s")
		t.Setenv("TEMPMAIL_PROVIDER_FALLBACK_DOMAINS", "A.test, b.test")
		t.Setenv("TEMPMAIL_CREATION_MAX_ATTEMPTS", "8")
		t.Setenv("TEMPMAIL_POLL_INTERVAL", "10s")
		t.Setenv("TEMPMAIL_LOG_LEVEL", "debug")
		t.Setenv("TEMPMAIL_LOG_DEVELOPMENT", "true")
		t.Setenv("TEMPMAIL_REDIS_ADDRESS", "localhost:6379")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "https://api.example.test", cfg.Provider.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.Provider.RequestTimeout)
		// 域名解析后去空格并小写
		assert.Equal(t, []string{"a.test", "b.test"}, cfg.Provider.FallbackDomains)
		assert.Equal(t, 8, cfg.Creation.MaxAttempts)
		assert.Equal(t, 10*time.Second, cfg.Poll.Interval)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.Development)
		assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	})

	t.Run("基础URL末尾斜杠被去除", func(t *testing.T) {
		t.Setenv("TEMPMAIL_PROVIDER_BASE_URL", "https://api.mail.tm/")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://api.mail.tm", cfg.Provider.BaseURL)
	})

	t.Run("无效的超时格式报错", func(t *testing.T) {
		t.Setenv("TEMPMAIL_PROVIDER_REQUEST_TIMEOUT", "not-a-duration")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("非法数值退回默认值", func(t *testing.T) {
		t.Setenv("TEMPMAIL_CREATION_MAX_ATTEMPTS", "-1")
		t.Setenv("TEMPMAIL_POLL_INTERVAL", "0s")
		t.Setenv("TEMPMAIL_RATELIMIT_CREATE_PER_IP", "0")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Creation.MaxAttempts)
		assert.Equal(t, 3*time.Second, cfg.Poll.Interval)
		assert.Equal(t, 30, cfg.RateLimit.CreatePerIP)
	})
}

func TestParseList(t *testing.T) {
	t.Run("解析逗号分隔列表", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b", "c"}, parseList("a, b ,c"))
	})

	t.Run("空项被跳过", func(t *testing.T) {
		assert.Equal(t, []string{"a"}, parseList("a,,  ,"))
	})

	t.Run("空串解析为空列表", func(t *testing.T) {
		assert.Empty(t, parseList(""))
	})
}
