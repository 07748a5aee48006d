package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tempmail/relay/internal/config"
	"tempmail/relay/internal/domain"
	"tempmail/relay/internal/monitoring"
	"tempmail/relay/internal/provider"
)

// DomainCache 缓存提供商的域名目录，避免每次创建都打 /domains。
type DomainCache interface {
	GetDomains() ([]string, bool)
	SetDomains(domains []string, ttl time.Duration)
}

// MailboxService 封装邮箱创建与销毁的业务流程。
type MailboxService struct {
	provider *provider.Client
	cfg      *config.Config
	catalog  DomainCache
	gen      *generator
	policy   RetryPolicy
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewMailboxService 创建邮箱业务服务。catalog 可以为 nil（不缓存目录）。
func NewMailboxService(client *provider.Client, cfg *config.Config, catalog DomainCache, log *zap.Logger) *MailboxService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailboxService{
		provider: client,
		cfg:      cfg,
		catalog:  catalog,
		gen:      newGenerator(),
		policy:   RetryPolicy{MaxAttempts: cfg.Creation.MaxAttempts},
		log:      log,
	}
}

// SetMetrics 设置监控指标（可选）。
func (s *MailboxService) SetMetrics(metrics *monitoring.Metrics) {
	s.metrics = metrics
}

// Domains 返回当前用于创建的域名列表：优先提供商目录（带缓存），
// 目录失败或为空时退回配置的兜底列表。兜底域名不保证权威。
func (s *MailboxService) Domains(ctx context.Context) []string {
	if s.catalog != nil {
		if domains, ok := s.catalog.GetDomains(); ok && len(domains) > 0 {
			return domains
		}
	}

	res := s.provider.Domains(ctx)
	domains := provider.DomainNames(res)
	if len(domains) == 0 {
		s.log.Warn("domain catalog unavailable, using fallback list",
			zap.Int("status", res.Status),
			zap.String("transport_err", res.TransportErr),
		)
		return s.cfg.Provider.FallbackDomains
	}

	if s.catalog != nil {
		s.catalog.SetDomains(domains, s.cfg.Provider.CatalogTTL)
	}
	return domains
}

// Create 执行完整的邮箱创建流程。
//
// 每次尝试选取 domains[attempt%len]，生成新的随机本地部分和密码，
// 调账户创建端点后换取令牌。分类规则：
//   - 创建 2xx         → 进入令牌阶段
//   - 创建 400/409/422 → 冲突/校验类，下一次尝试
//   - 创建 其他状态     → 立即终止
//   - 令牌 2xx 且含 token → 成功
//   - 令牌 4xx          → 立即终止
//   - 令牌 5xx/传输失败  → 下一次尝试
//
// 所有尝试耗尽时返回 Stage=exhausted 的 CreationError，附带最后一次
// 观察到的失败细节。
func (s *MailboxService) Create(ctx context.Context) (*domain.Mailbox, error) {
	domains := s.Domains(ctx)

	var (
		mailbox *domain.Mailbox
		lastErr *CreationError
	)

	outcome, attempts := s.policy.Run(ctx, func(ctx context.Context, attempt int) Outcome {
		selected := domains[attempt%len(domains)]
		localPart := s.gen.randomString(s.cfg.Creation.LocalPartLength)
		password := s.gen.randomString(s.cfg.Creation.PasswordLength)
		address := fmt.Sprintf("%s@%s", localPart, selected)

		createRes := s.provider.CreateAccount(ctx, address, password)
		switch {
		case createRes.Failed():
			// 传输失败在创建层始终可重试
			lastErr = &CreationError{Stage: StageCreate, Attempt: attempt, Detail: createRes.TransportErr}
			return OutcomeRetry
		case createRes.OK:
			// 继续令牌阶段
		case retryableCreateStatus(createRes.Status):
			lastErr = &CreationError{Stage: StageCreate, Attempt: attempt, Status: createRes.Status, Detail: createRes.RawText}
			s.log.Debug("address collision, retrying with fresh local part",
				zap.String("address", address),
				zap.Int("status", createRes.Status),
			)
			return OutcomeRetry
		default:
			lastErr = &CreationError{Stage: StageCreate, Attempt: attempt, Status: createRes.Status, Detail: createRes.RawText}
			return OutcomeAbort
		}

		tokenRes := s.provider.Token(ctx, address, password)
		token := tokenField(tokenRes.Body)
		switch {
		case tokenRes.OK && token != "":
			mailbox = &domain.Mailbox{
				AccountID: accountIDField(tokenRes.Body, createRes.Body),
				Address:   address,
				LocalPart: localPart,
				Domain:    selected,
				Password:  password,
				Token:     token,
				CreatedAt: time.Now().UTC(),
			}
			return OutcomeSuccess
		case !tokenRes.Failed() && tokenRes.Status >= 400 && tokenRes.Status < 500:
			lastErr = &CreationError{Stage: StageToken, Attempt: attempt, Status: tokenRes.Status, Detail: tokenRes.RawText}
			return OutcomeAbort
		default:
			// 5xx 或传输失败：账户可能已建好但登录暂不可用，换一次重来
			lastErr = &CreationError{Stage: StageToken, Attempt: attempt, Status: tokenRes.Status, Detail: tokenRes.RawText + tokenRes.TransportErr}
			return OutcomeRetry
		}
	})

	switch outcome {
	case OutcomeSuccess:
		s.log.Info("mailbox created",
			zap.String("address", mailbox.Address),
			zap.Int("attempts", attempts),
		)
		if s.metrics != nil {
			s.metrics.RecordMailboxCreated(attempts)
		}
		return mailbox, nil
	case OutcomeAbort:
		if lastErr == nil {
			lastErr = &CreationError{Stage: StageCreate, Detail: ctx.Err().Error()}
		}
		return nil, lastErr
	default:
		exhausted := &CreationError{Stage: StageExhausted, Attempt: attempts}
		if lastErr != nil {
			exhausted.Status = lastErr.Status
			exhausted.Detail = lastErr.Error()
		}
		return nil, exhausted
	}
}

// DeleteAccount 尽力删除上游账户，成功时上游返回 204。
// 失败时返回带上游状态的 UpstreamError，由传输层透传。
func (s *MailboxService) DeleteAccount(ctx context.Context, token, accountID string) error {
	if token == "" {
		return ErrMissingToken
	}
	if accountID == "" {
		return ErrMissingID
	}

	res := s.provider.DeleteAccount(ctx, token, accountID)
	if res.Failed() {
		return &UpstreamError{Stage: "delete", Detail: res.TransportErr}
	}
	if !res.OK {
		return &UpstreamError{
			Stage:       "delete",
			Status:      res.Status,
			Detail:      res.RawText,
			AuthFailure: res.Status == 401 || res.Status == 403,
		}
	}
	return nil
}

// tokenField 从令牌响应中取出 token 字段。
func tokenField(body interface{}) string {
	entry, ok := body.(map[string]interface{})
	if !ok {
		return ""
	}
	token, _ := entry["token"].(string)
	return token
}

// accountIDField 解析账户 ID：令牌响应的 account（字符串或对象），
// 退而用创建响应的 id。
func accountIDField(tokenBody, createBody interface{}) string {
	if entry, ok := tokenBody.(map[string]interface{}); ok {
		switch account := entry["account"].(type) {
		case string:
			return account
		case map[string]interface{}:
			if id, ok := account["id"].(string); ok {
				return id
			}
		}
		if id, ok := entry["id"].(string); ok {
			return id
		}
	}
	if entry, ok := createBody.(map[string]interface{}); ok {
		if id, ok := entry["id"].(string); ok {
			return id
		}
	}
	return ""
}
