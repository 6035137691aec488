package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tooldeck/internal/domain"
)

func TestRetry_ExhaustsBudgetAndKeepsLastError(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), domain.RetryPolicy{Attempts: 2, Delay: 5 * time.Millisecond}, func(ctx context.Context) error {
		n := calls.Add(1)
		return fmt.Errorf("E%d", n)
	})

	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.EqualError(t, err, "E3")
}

func TestRetry_StopsAtFirstSuccess(t *testing.T) {
	var calls atomic.Int32
	start := time.Now()
	err := Retry(context.Background(), domain.RetryPolicy{Attempts: 5, Delay: 10 * time.Millisecond}, func(ctx context.Context) error {
		if calls.Add(1) < 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), domain.RetryPolicy{}, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

// Retry is deliberately blind to the error kind: even failures that cannot
// succeed on a second attempt are retried up to the budget.
func TestRetry_IgnoresErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "invalid params", err: domain.E(domain.CodeInvalidParams, "", "bad field", nil)},
		{name: "auth failure", err: domain.E(domain.CodeAuthFailure, "", "token rejected", nil)},
		{name: "raw", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			err := Retry(context.Background(), domain.RetryPolicy{Attempts: 2, Delay: time.Millisecond}, func(ctx context.Context) error {
				calls.Add(1)
				return tt.err
			})

			require.Error(t, err)
			assert.Equal(t, int32(3), calls.Load())
			assert.Equal(t, domain.CodeOf(tt.err), domain.CodeOf(err))
		})
	}
}

func TestRetryValue_RecoversAfterFailures(t *testing.T) {
	var calls atomic.Int32
	value, err := RetryValue(context.Background(), domain.RetryPolicy{Attempts: 2, Delay: time.Millisecond}, func(ctx context.Context) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTimeout_FiresBeforeSlowOperation(t *testing.T) {
	start := time.Now()
	err := Timeout(context.Background(), 50*time.Millisecond, "browser call timed out", func(ctx context.Context) error {
		time.Sleep(300 * time.Millisecond)
		return nil
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, domain.CodeTimeout, domain.CodeOf(err))
	assert.ErrorContains(t, err, "browser call timed out")
	assert.Less(t, elapsed, 250*time.Millisecond)
}

func TestTimeout_DoesNotCancelTheOperation(t *testing.T) {
	completed := make(chan struct{})
	err := Timeout(context.Background(), 20*time.Millisecond, "", func(ctx context.Context) error {
		time.Sleep(80 * time.Millisecond)
		close(completed)
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, domain.CodeTimeout, domain.CodeOf(err))

	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("background operation never ran to completion")
	}
}

func TestTimeoutValue_FastOperationPassesThrough(t *testing.T) {
	value, err := TimeoutValue(context.Background(), time.Second, "", func(ctx context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestTimeoutValue_OperationErrorPassesThroughUnchanged(t *testing.T) {
	original := domain.E(domain.CodeNotFound, "gh.ListIssues", "repo missing", nil)
	_, err := TimeoutValue(context.Background(), time.Second, "", func(ctx context.Context) (int, error) {
		return 0, original
	})

	require.Error(t, err)
	var structured *domain.Error
	require.ErrorAs(t, err, &structured)
	assert.Same(t, original, structured)
}

func TestTimeoutValue_DisabledRunsInline(t *testing.T) {
	value, err := TimeoutValue(context.Background(), 0, "", func(ctx context.Context) (string, error) {
		return "inline", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "inline", value)
}

func TestTimeoutValue_RecoversPanickedOperation(t *testing.T) {
	var err error
	require.NotPanics(t, func() {
		_, err = TimeoutValue(context.Background(), time.Second, "", func(ctx context.Context) (int, error) {
			panic("adapter blew up")
		})
	})

	require.Error(t, err)
	assert.Equal(t, domain.CodeInternal, domain.CodeOf(err))
	assert.ErrorContains(t, err, "adapter blew up")
}
