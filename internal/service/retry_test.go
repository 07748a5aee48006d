package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyRun(t *testing.T) {
	t.Run("成功立即停止", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 5}
		executed := 0

		outcome, attempts := policy.Run(context.Background(), func(ctx context.Context, attempt int) Outcome {
			executed++
			return OutcomeSuccess
		})

		assert.Equal(t, OutcomeSuccess, outcome)
		assert.Equal(t, 1, attempts)
		assert.Equal(t, 1, executed)
	})

	t.Run("重试不超过次数上限", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 3}
		var seen []int

		outcome, attempts := policy.Run(context.Background(), func(ctx context.Context, attempt int) Outcome {
			seen = append(seen, attempt)
			return OutcomeRetry
		})

		assert.Equal(t, OutcomeRetry, outcome)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, []int{0, 1, 2}, seen)
	})

	t.Run("终止类失败立即放弃剩余尝试", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 5}
		executed := 0

		outcome, attempts := policy.Run(context.Background(), func(ctx context.Context, attempt int) Outcome {
			executed++
			if attempt == 1 {
				return OutcomeAbort
			}
			return OutcomeRetry
		})

		assert.Equal(t, OutcomeAbort, outcome)
		assert.Equal(t, 2, attempts)
		assert.Equal(t, 2, executed)
	})

	t.Run("上下文取消后不再尝试", func(t *testing.T) {
		policy := RetryPolicy{MaxAttempts: 5}
		ctx, cancel := context.WithCancel(context.Background())

		outcome, attempts := policy.Run(ctx, func(ctx context.Context, attempt int) Outcome {
			cancel()
			return OutcomeRetry
		})

		assert.Equal(t, OutcomeAbort, outcome)
		assert.Equal(t, 1, attempts)
	})
}

func TestRetryableCreateStatus(t *testing.T) {
	t.Run("冲突和校验类状态可重试", func(t *testing.T) {
		assert.True(t, retryableCreateStatus(400))
		assert.True(t, retryableCreateStatus(409))
		assert.True(t, retryableCreateStatus(422))
	})

	t.Run("其他状态不可重试", func(t *testing.T) {
		assert.False(t, retryableCreateStatus(401))
		assert.False(t, retryableCreateStatus(403))
		assert.False(t, retryableCreateStatus(500))
		assert.False(t, retryableCreateStatus(503))
	})
}

func TestRandomString(t *testing.T) {
	t.Run("长度和字符集符合约定", func(t *testing.T) {
		gen := newGenerator()
		s := gen.randomString(12)

		assert.Len(t, s, 12)
		for _, r := range s {
			assert.Contains(t, localPartAlphabet, string(r))
		}
	})

	t.Run("连续生成的串彼此不同", func(t *testing.T) {
		gen := newGenerator()
		seen := make(map[string]struct{})
		for i := 0; i < 50; i++ {
			seen[gen.randomString(12)] = struct{}{}
		}
		assert.Len(t, seen, 50)
	})
}
