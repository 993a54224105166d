package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds retries of transient failures. Delays double from
// BaseDelay up to MaxDelay; a Retry-After hint from the provider wins when it is
// shorter than MaxDelay.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (p RetryPolicy) delay(attempt int, err error) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	ceiling := p.MaxDelay
	if ceiling <= 0 {
		ceiling = 5 * time.Second
	}
	d := base << (attempt - 1)
	if d <= 0 || d > ceiling {
		d = ceiling
	}
	var pe *Error
	if errors.As(err, &pe) && pe.RetryAfter > 0 && pe.RetryAfter < ceiling {
		d = pe.RetryAfter
	}
	return d
}

func withRetry[T any](ctx context.Context, p RetryPolicy, log *zap.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		out     T
		lastErr error
	)
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := p.delay(attempt, lastErr)
			log.Warn("provider request retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", p.MaxRetries),
				zap.Duration("sleep", wait),
				zap.Error(lastErr),
			)
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return out, errors.Join(lastErr, ctx.Err())
			}
		}

		out, lastErr = fn(ctx)
		if lastErr == nil {
			return out, nil
		}
		if !IsTransient(lastErr) {
			return out, lastErr
		}
		if err := ctx.Err(); err != nil {
			if errors.Is(lastErr, err) {
				return out, lastErr
			}
			return out, errors.Join(lastErr, err)
		}
	}
	return out, lastErr
}
