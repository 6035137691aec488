package resilience

import (
	"context"

	"github.com/avast/retry-go/v4"

	"tooldeck/internal/domain"
)

// Retry runs op up to policy.Attempts additional times after a failure,
// sleeping the fixed policy.Delay between attempts. Every error is retried
// regardless of its kind; the error of the last attempt is returned when the
// budget is exhausted.
func Retry(ctx context.Context, policy domain.RetryPolicy, op func(context.Context) error) error {
	if policy.Attempts == 0 {
		return op(ctx)
	}
	return retry.Do(
		func() error { return op(ctx) },
		retry.Attempts(policy.Attempts+1),
		retry.Delay(policy.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

// RetryValue is Retry for operations that produce a value.
func RetryValue[T any](ctx context.Context, policy domain.RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	if policy.Attempts == 0 {
		return op(ctx)
	}
	return retry.DoWithData(
		func() (T, error) { return op(ctx) },
		retry.Attempts(policy.Attempts+1),
		retry.Delay(policy.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}
