package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"tempmail/relay/internal/domain"
	"tempmail/relay/internal/provider"
)

// Inbox 是一次列表查询的归一化结果。
//
// 信封形状不可识别时 Messages 为 nil、Raw 携带原始解码体，
// 调用方至少还能检查数据而不是静默丢失。
type Inbox struct {
	Messages []domain.MessageSummary
	Raw      interface{}
}

// MessageService 封装收件箱查询流程。
//
// 本层不做重试：轮询场景下一次 tick 失败由下一次 tick 自然补偿。
type MessageService struct {
	provider *provider.Client
	log      *zap.Logger
}

// NewMessageService 创建邮件业务服务。
func NewMessageService(client *provider.Client, log *zap.Logger) *MessageService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageService{provider: client, log: log}
}

// List 列出令牌对应收件箱的邮件摘要。
// 令牌缺失是调用方的前置条件违反，直接返回 ErrMissingToken，不发起网络调用。
func (s *MessageService) List(ctx context.Context, token string) (*Inbox, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	res := s.provider.ListMessages(ctx, token)
	if err := upstreamFailure("list", res); err != nil {
		return nil, err
	}

	summaries, err := provider.NormalizeSummaries(res.Body)
	if errors.Is(err, provider.ErrUnrecognizedEnvelope) {
		s.log.Warn("unrecognized message list envelope, passing through raw body")
		return &Inbox{Raw: res.Body}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Inbox{Messages: summaries}, nil
}

// Read 按 ID 获取完整邮件，每封邮件独立一次往返，不做批量。
func (s *MessageService) Read(ctx context.Context, token, id string) (*domain.MessageFull, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if id == "" {
		return nil, ErrMissingID
	}

	res := s.provider.GetMessage(ctx, token, id)
	if err := upstreamFailure("read", res); err != nil {
		return nil, err
	}

	return provider.NormalizeMessage(res.Body)
}

// Delete 按 ID 删除单封邮件。
func (s *MessageService) Delete(ctx context.Context, token, id string) error {
	if token == "" {
		return ErrMissingToken
	}
	if id == "" {
		return ErrMissingID
	}

	res := s.provider.DeleteMessage(ctx, token, id)
	return upstreamFailure("delete", res)
}

// upstreamFailure 把非成功的提供商结果转成 UpstreamError。
// 4xx 标记为认证类失败：令牌视为失效，调用方应重建邮箱而非重试。
func upstreamFailure(stage string, res provider.Result) error {
	if res.Failed() {
		return &UpstreamError{Stage: stage, Detail: res.TransportErr}
	}
	if !res.OK {
		return &UpstreamError{
			Stage:       stage,
			Status:      res.Status,
			Detail:      res.RawText,
			AuthFailure: res.Status >= 400 && res.Status < 500,
		}
	}
	return nil
}
