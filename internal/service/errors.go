package service

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken 调用方未提供令牌，属于前置条件违反，不发起网络调用
	ErrMissingToken = errors.New("missing token")
	// ErrMissingID 调用方未提供邮件/账户 ID
	ErrMissingID = errors.New("missing id")
)

// 创建流程的阶段标识
const (
	StageCreate    = "create"    // 账户创建端点失败
	StageToken     = "token"     // 令牌换取端点失败
	StageExhausted = "exhausted" // 所有尝试耗尽
)

// CreationError 描述邮箱创建流程的失败。
//
// Status=0 表示传输层失败；Stage 标明失败发生的阶段，
// Detail 保留上游原始响应文本用于诊断。
type CreationError struct {
	Stage   string
	Attempt int
	Status  int
	Detail  string
}

func (e *CreationError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("mailbox creation failed at %s (attempt %d): %s", e.Stage, e.Attempt, e.Detail)
	}
	return fmt.Sprintf("mailbox creation failed at %s (attempt %d): upstream status %d", e.Stage, e.Attempt, e.Status)
}

// UpstreamError 描述收件箱查询/删除的上游失败。
//
// AuthFailure 为真表示 4xx 认证类失败：令牌已失效，
// 调用方应丢弃缓存的邮箱并重新创建，而不是重试。
type UpstreamError struct {
	Stage       string
	Status      int
	Detail      string
	AuthFailure bool
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream %s failed: %s", e.Stage, e.Detail)
	}
	return fmt.Sprintf("upstream %s failed: status %d", e.Stage, e.Status)
}
