package httptransport

import (
	"tempmail/relay/internal/service"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	service.ErrMissingToken: "缺少邮箱令牌",
	service.ErrMissingID:    "缺少邮件或账户 ID",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 机器可读错误标识（响应中的 error 字段）
const (
	ErrCodeMissingToken  = "missing_token"
	ErrCodeMissingID     = "missing_id"
	ErrCodeInvalidToken  = "invalid_token"
	ErrCodeCreateFailed  = "create_failed"
	ErrCodeTokenFailed   = "token_failed"
	ErrCodeExhausted     = "all_attempts_failed"
	ErrCodeUpstreamError = "provider_error"
)

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"
	MsgMissingToken   = "缺少邮箱令牌"
	MsgMissingID      = "缺少邮件或账户 ID"
	MsgTokenInvalid   = "令牌已失效，请重新创建邮箱"

	MsgMailboxCreateFailed = "创建邮箱失败"
	MsgMailboxDeleteFailed = "删除邮箱失败"
	MsgMessageListFailed   = "获取邮件列表失败"
	MsgMessageGetFailed    = "获取邮件详情失败"
	MsgMessageDeleteFailed = "删除邮件失败"

	MsgInternalError = "服务器内部错误，请稍后重试"
)
