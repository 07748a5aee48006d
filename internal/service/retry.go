package service

import "context"

// Outcome 是单次尝试的分类结果，驱动有界重试循环。
type Outcome int

const (
	// OutcomeSuccess 尝试成功，停止循环
	OutcomeSuccess Outcome = iota
	// OutcomeRetry 可重试类失败（冲突/校验/5xx/传输），换随机值继续
	OutcomeRetry
	// OutcomeAbort 终止类失败，立即放弃剩余尝试
	OutcomeAbort
)

// RetryPolicy 定义有界重试策略。
//
// 冲突在共享命名空间下随机生成时是预期内的，换一个新的随机
// 本地部分重试即可；冲突与速率无关，所以不需要退避。
type RetryPolicy struct {
	MaxAttempts int
}

// AttemptFunc 执行第 n 次（从 0 开始）尝试并报告分类结果。
type AttemptFunc func(ctx context.Context, attempt int) Outcome

// Run 顺序执行尝试直到成功、终止或次数耗尽。
// 返回最后一次尝试的分类结果和实际执行的尝试次数。
func (p RetryPolicy) Run(ctx context.Context, attempt AttemptFunc) (Outcome, int) {
	outcome := OutcomeRetry
	attempts := 0
	for i := 0; i < p.MaxAttempts; i++ {
		if ctx.Err() != nil {
			return OutcomeAbort, attempts
		}
		attempts++
		outcome = attempt(ctx, i)
		if outcome != OutcomeRetry {
			return outcome, attempts
		}
	}
	return outcome, attempts
}

// retryableCreateStatus 判断账户创建响应是否属于冲突/校验类。
// 随机本地部分撞车时上游返回 400/409/422，换一个再试。
func retryableCreateStatus(status int) bool {
	switch status {
	case 400, 409, 422:
		return true
	}
	return false
}
