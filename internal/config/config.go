package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// ProviderConfig 定义上游邮箱提供商的访问配置
type ProviderConfig struct {
	BaseURL         string        // 提供商 API 地址，默认 "https://api.mail.tm"
	RequestTimeout  time.Duration // 单次上游请求超时，默认 15s
	RequestsPerSec  float64       // 上游请求限速（每秒），默认 5
	FallbackDomains []string      // 域名目录拉取失败时的兜底域名列表
	CatalogTTL      time.Duration // 域名目录缓存时间，默认 10 分钟
}

// CreationConfig 定义邮箱创建流程的配置
type CreationConfig struct {
	MaxAttempts     int // 账户创建最大尝试次数，默认 5
	LocalPartLength int // 随机本地部分长度，默认 12
	PasswordLength  int // 随机密码长度，默认 16
}

// PollConfig 定义收件箱轮询配置
type PollConfig struct {
	Interval time.Duration // 轮询间隔，默认 3s
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// RedisConfig 定义 Redis 缓存服务配置
//
// Address 留空表示不启用 Redis，退回进程内缓存与计数。
type RedisConfig struct {
	Address  string // Redis 服务地址，格式 "host:port"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// RateLimitConfig 定义邮箱创建的限流配置
type RateLimitConfig struct {
	CreatePerIP int           // 单个 IP 在窗口内最多可创建的邮箱数量，默认 30
	Window      time.Duration // 限流窗口，默认 1 小时
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig    // HTTP 服务器配置
	Provider  ProviderConfig  // 上游提供商配置
	Creation  CreationConfig  // 邮箱创建配置
	Poll      PollConfig      // 轮询配置
	CORS      CORSConfig      // 跨域配置
	Log       LogConfig       // 日志配置
	Redis     RedisConfig     // Redis 配置
	RateLimit RateLimitConfig // 限流配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: TEMPMAIL_
// 例如: TEMPMAIL_PROVIDER_BASE_URL, TEMPMAIL_CREATION_MAX_ATTEMPTS
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("tempmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("provider.base_url", "https://api.mail.tm")
	viper.SetDefault("provider.request_timeout", "15s")
	viper.SetDefault("provider.requests_per_sec", 5.0)
	viper.SetDefault("provider.fallback_domains", "mail.tm")
	viper.SetDefault("provider.catalog_ttl", "10m")
	viper.SetDefault("creation.max_attempts", 5)
	viper.SetDefault("creation.local_part_length", 12)
	viper.SetDefault("creation.password_length", 16)
	viper.SetDefault("poll.interval", "3s")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("redis.address", "") // 默认为空，使用进程内缓存
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.create_per_ip", 30)
	viper.SetDefault("ratelimit.window", "1h")

	baseURL := strings.TrimRight(viper.GetString("provider.base_url"), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("provider.base_url must not be empty")
	}

	requestTimeout, err := time.ParseDuration(viper.GetString("provider.request_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid provider.request_timeout: %w", err)
	}

	catalogTTL, err := time.ParseDuration(viper.GetString("provider.catalog_ttl"))
	if err != nil {
		catalogTTL = 10 * time.Minute
	}

	fallbackDomains := parseDomains(viper.GetString("provider.fallback_domains"))
	if len(fallbackDomains) == 0 {
		return nil, fmt.Errorf("provider.fallback_domains must not be empty")
	}

	maxAttempts := viper.GetInt("creation.max_attempts")
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	localPartLength := viper.GetInt("creation.local_part_length")
	if localPartLength <= 0 {
		localPartLength = 12
	}

	passwordLength := viper.GetInt("creation.password_length")
	if passwordLength <= 0 {
		passwordLength = 16
	}

	pollInterval, err := time.ParseDuration(viper.GetString("poll.interval"))
	if err != nil || pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	rateWindow, err := time.ParseDuration(viper.GetString("ratelimit.window"))
	if err != nil || rateWindow <= 0 {
		rateWindow = time.Hour
	}

	createPerIP := viper.GetInt("ratelimit.create_per_ip")
	if createPerIP <= 0 {
		createPerIP = 30
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Provider: ProviderConfig{
			BaseURL:         baseURL,
			RequestTimeout:  requestTimeout,
			RequestsPerSec:  viper.GetFloat64("provider.requests_per_sec"),
			FallbackDomains: fallbackDomains,
			CatalogTTL:      catalogTTL,
		},
		Creation: CreationConfig{
			MaxAttempts:     maxAttempts,
			LocalPartLength: localPartLength,
			PasswordLength:  passwordLength,
		},
		Poll: PollConfig{
			Interval: pollInterval,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			CreatePerIP: createPerIP,
			Window:      rateWindow,
		},
	}

	return cfg, nil
}

// parseDomains 将逗号分隔的域名字符串解析为小写域名数组
func parseDomains(value string) []string {
	out := parseList(value)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（从子目录运行的情况）
//
// 如果文件不存在，静默失败（.env 是可选的）；已存在的环境变量优先级更高。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
