package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelizeCoversEveryItem(t *testing.T) {
	for _, items := range []int{0, 1, 7, 1000} {
		seen := make([]int32, items)
		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, c := range seen {
			assert.Equal(t, int32(1), c, "item %d", i)
		}
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}

func TestForEach(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{"sequential", 1},
		{"bounded", 3},
		{"cpu", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]int, 20)
			err := ForEach(context.Background(), len(out), tt.workers, func(_ context.Context, i int) error {
				out[i] = i * i
				return nil
			})
			require.NoError(t, err)
			for i, v := range out {
				assert.Equal(t, i*i, v)
			}
		})
	}
}

func TestForEachReturnsError(t *testing.T) {
	boom := errors.New("boom")
	err := ForEach(context.Background(), 5, 2, func(_ context.Context, i int) error {
		if i == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)

	err = ForEach(context.Background(), 5, 1, func(_ context.Context, i int) error {
		if i == 1 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}
