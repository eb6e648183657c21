package aggregates

import (
	"context"
	"time"

	domainagg "github.com/yungbote/commonground-backend/internal/domain/aggregates"
	"github.com/yungbote/commonground-backend/internal/platform/dbctx"
)

// RetryPolicy bounds re-execution of a whole transaction after a transient failure.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultJoinRetry is used for group joins.
var DefaultJoinRetry = RetryPolicy{MaxAttempts: 3, BaseDelay: 25 * time.Millisecond, MaxDelay: 200 * time.Millisecond}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = time.Second
	}
	return p
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if d > p.MaxDelay || d < 0 {
		return p.MaxDelay
	}
	return d
}

// executeWriteWithRetry runs fn in a fresh transaction per attempt. Only
// conflict and retryable outcomes are retried; exhausting the budget yields
// CodeRetryable wrapping the last failure.
func executeWriteWithRetry(ctx context.Context, deps BaseDeps, policy RetryPolicy, op string, fn func(dbc dbctx.Context) error) (int, error) {
	policy = policy.withDefaults()
	var last error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		last = executeWrite(ctx, deps, op, fn)
		if last == nil || !domainagg.IsTransient(last) {
			return attempt, last
		}
		if ctx.Err() != nil {
			return attempt, last
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if deps.Log != nil {
			deps.Log.Debug("aggregate write retrying", "op", op, "attempt", attempt, "error", last)
		}
		timer := time.NewTimer(policy.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, last
		case <-timer.C:
		}
	}
	return policy.MaxAttempts, domainagg.NewError(domainagg.CodeRetryable, op, "retry budget exhausted", last)
}
