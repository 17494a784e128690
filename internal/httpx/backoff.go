package httpx

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// NewBackOff translates a RetryPolicy into an exponential backoff bounded by
// MaxRetries and bound to ctx.
func NewBackOff(ctx context.Context, policy RetryPolicy) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.BaseDelay
	exp.MaxInterval = policy.MaxDelay
	exp.RandomizationFactor = clampJitter(policy.Jitter)
	exp.MaxElapsedTime = 0
	exp.Reset()

	var b backoff.BackOff = exp
	if policy.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(policy.MaxRetries))
	}
	return backoff.WithContext(b, ctx)
}

func (c *Client) newBackOff(ctx context.Context, req *Request) backoff.BackOff {
	if req.DisableRetry {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	return NewBackOff(ctx, c.retryPolicy)
}

func clampJitter(j float64) float64 {
	switch {
	case j < 0:
		return 0
	case j > 1:
		return 1
	default:
		return j
	}
}
