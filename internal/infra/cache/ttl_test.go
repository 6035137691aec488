package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTL_HitSuppressesRecompute(t *testing.T) {
	cache := NewTTL[string](time.Minute, 0)
	var calls atomic.Int32
	compute := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "first", nil
	}

	value, hit, err := cache.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "first", value)

	value, hit, err = cache.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "first", value)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTTL_ExpiryTriggersRecompute(t *testing.T) {
	cache := NewTTL[string](30*time.Millisecond, 0)
	var calls atomic.Int32
	compute := func(ctx context.Context) (string, error) {
		return fmt.Sprintf("value-%d", calls.Add(1)), nil
	}

	first, _, err := cache.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, "value-1", first)

	time.Sleep(50 * time.Millisecond)

	second, hit, err := cache.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "value-2", second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTTL_ConcurrentMissesCoalesce(t *testing.T) {
	const workers = 16

	cache := NewTTL[string](time.Minute, 0)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	results := make([]string, workers)
	var started, done sync.WaitGroup
	started.Add(workers)
	done.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			value, _, err := cache.GetOrCompute(context.Background(), "k", compute)
			assert.NoError(t, err)
			results[i] = value
		}(i)
	}

	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, value := range results {
		assert.Equal(t, "shared", value)
	}
}

func TestTTL_ErrorsAreNotStored(t *testing.T) {
	cache := NewTTL[string](time.Minute, 0)
	var calls atomic.Int32

	_, _, err := cache.GetOrCompute(context.Background(), "k", func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "", errors.New("boom")
	})
	require.Error(t, err)
	assert.Zero(t, cache.Size())

	value, hit, err := cache.GetOrCompute(context.Background(), "k", func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "recovered", value)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTTL_DistinctKeysComputeSeparately(t *testing.T) {
	cache := NewTTL[string](time.Minute, 0)
	var calls atomic.Int32
	compute := func(ctx context.Context) (string, error) {
		return fmt.Sprintf("value-%d", calls.Add(1)), nil
	}

	a, _, err := cache.GetOrCompute(context.Background(), "a", compute)
	require.NoError(t, err)
	b, _, err := cache.GetOrCompute(context.Background(), "b", compute)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, cache.Size())
}

func TestTTL_MaxEntriesEvictsOldest(t *testing.T) {
	cache := NewTTL[int](time.Minute, 2)

	for i, key := range []string{"a", "b", "c"} {
		value := i
		_, _, err := cache.GetOrCompute(context.Background(), key, func(ctx context.Context) (int, error) {
			return value, nil
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	assert.Equal(t, 2, cache.Size())

	// "a" was the oldest entry; asking again recomputes it.
	var recomputed bool
	_, hit, err := cache.GetOrCompute(context.Background(), "a", func(ctx context.Context) (int, error) {
		recomputed = true
		return 0, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, recomputed)
}
