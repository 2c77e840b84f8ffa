package deletion

import (
	"Gallery_Manager/pkg/database"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// retryPolicy 是单个文档组的重试预算。
// 普通失败后固定等待 base；版本冲突后等待 base·2^n（n 为已失败次数），
// 冲突与普通失败共用同一个预算，总尝试次数不超过 maxAttempts。
type retryPolicy struct {
	base        time.Duration
	maxAttempts int

	failures     int
	lastConflict bool
}

var _ backoff.BackOff = (*retryPolicy)(nil)

func newRetryPolicy(maxAttempts int, base time.Duration) *retryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryPolicy{base: base, maxAttempts: maxAttempts}
}

// observe 记录最近一次失败的类型，NextBackOff 据此选择等待时间。
func (p *retryPolicy) observe(err error) {
	p.lastConflict = errors.Is(err, database.ErrVersionConflict)
}

func (p *retryPolicy) NextBackOff() time.Duration {
	p.failures++
	if p.failures >= p.maxAttempts {
		return backoff.Stop
	}
	if p.lastConflict {
		return p.base << p.failures
	}
	return p.base
}

func (p *retryPolicy) Reset() {
	p.failures = 0
	p.lastConflict = false
}
