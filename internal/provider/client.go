package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Result 是对上游提供商单次调用的统一结果。
//
// 该层不向调用方抛出传输错误：网络失败通过 TransportErr 返回，
// 此时 OK=false、Status=0。响应体优先按 JSON 解码，失败时 Body
// 保留原始文本，保证错误信息始终可检查。
type Result struct {
	OK           bool
	Status       int
	Body         interface{}
	RawText      string
	TransportErr string
}

// Failed 判断该结果是否为传输层失败。
func (r Result) Failed() bool {
	return r.TransportErr != ""
}

// RequestRecorder 接收上游请求的监控采样。
type RequestRecorder interface {
	RecordProviderRequest(operation string, status int, duration time.Duration)
}

// Client 负责访问上游提供商的 REST 端点。
//
// 本层不做重试，重试策略由调用方（创建流程）决定；
// 出站请求经过共享限速器，避免压垮公共上游。
type Client struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	recorder RequestRecorder
	log      *zap.Logger
}

// Option 配置 Client 的可选项。
type Option func(*Client)

// WithHTTPClient 替换底层 HTTP 客户端（测试时注入 httptest）。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger 设置日志记录器。
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithMetrics 设置上游请求的监控采样器。
func WithMetrics(recorder RequestRecorder) Option {
	return func(c *Client) {
		c.recorder = recorder
	}
}

// WithRateLimit 设置出站请求限速（每秒请求数）。
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// NewClient 创建提供商客户端。
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request 向提供商发起一次调用并返回统一结果。
//
// payload 不为 nil 时以 JSON 编码为请求体；token 不为空时附加
// Bearer 认证头。任何阶段的失败都体现在 Result 中，不返回 error。
func (c *Client) Request(ctx context.Context, method, path, token string, payload interface{}) Result {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{TransportErr: err.Error()}
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Result{TransportErr: fmt.Sprintf("encode request: %v", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Result{TransportErr: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("provider request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		if c.recorder != nil {
			c.recorder.RecordProviderRequest(operationFromPath(path), 0, time.Since(start))
		}
		return Result{TransportErr: err.Error()}
	}
	defer resp.Body.Close()

	if c.recorder != nil {
		c.recorder.RecordProviderRequest(operationFromPath(path), resp.StatusCode, time.Since(start))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: resp.StatusCode, TransportErr: fmt.Sprintf("read response: %v", err)}
	}

	c.log.Debug("provider request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	result := Result{
		OK:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:  resp.StatusCode,
		RawText: string(raw),
	}

	// 尝试 JSON 解码，失败时退回原始文本
	if len(raw) > 0 {
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err == nil {
			result.Body = decoded
		} else {
			result.Body = string(raw)
		}
	}

	return result
}

// operationFromPath 取路径首段作为指标标签，避免把消息 ID 写进标签。
func operationFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}
