package resilience

import (
	"context"
	"fmt"
	"time"

	"tooldeck/internal/domain"
)

// TimeoutValue races op against a timer. If the timer fires first the caller
// gets a Timeout-kind error; op itself is not cancelled and keeps running in
// the background with its eventual result discarded (the adapters behind the
// tools do not expose cancellation). If op settles first its result passes
// through unchanged. A non-positive d disables the race.
func TimeoutValue[T any](ctx context.Context, d time.Duration, msg string, op func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return op(ctx)
	}

	type outcome struct {
		value T
		err   error
	}
	settled := make(chan outcome, 1)
	go func() {
		// The op runs off the caller's goroutine, so a panic here would
		// escape every recover upstream and kill the process.
		defer func() {
			if recovered := recover(); recovered != nil {
				settled <- outcome{err: domain.E(domain.CodeInternal, "resilience.Timeout",
					fmt.Sprintf("operation panic: %v", recovered), nil)}
			}
		}()
		value, err := op(ctx)
		settled <- outcome{value: value, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case out := <-settled:
		return out.value, out.err
	case <-timer.C:
		if msg == "" {
			msg = fmt.Sprintf("operation timed out after %s", d)
		}
		return zero, domain.E(domain.CodeTimeout, "resilience.Timeout", msg, nil)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Timeout is TimeoutValue for operations without a result.
func Timeout(ctx context.Context, d time.Duration, msg string, op func(context.Context) error) error {
	_, err := TimeoutValue(ctx, d, msg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
