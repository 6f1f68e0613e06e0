package concurrent

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool(t *testing.T) {
	ctx := context.Background()
	wp := NewWorkerPool[int, int](4, 8)
	wp.Start(ctx, func(_ context.Context, x int) int { return x * x })

	go func() {
		for i := 0; i < 100; i++ {
			assert.NoError(t, wp.AddJob(ctx, i, i))
		}
		wp.Close()
	}()
	go wp.Wait()

	var got []Result[int]
	for r := range wp.CollectResults() {
		got = append(got, r)
	}

	require.Len(t, got, 100)
	sort.Slice(got, func(i, j int) bool { return got[i].Index < got[j].Index })
	for i, r := range got {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, i*i, r.Value)
	}
}

func TestWorkerPoolCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	wp := NewWorkerPool[int, int](0, 0)
	cancel()

	assert.ErrorIs(t, wp.AddJob(ctx, 0, 1), context.Canceled)

	wp.Start(ctx, func(_ context.Context, x int) int { return x })
	wp.Close()
	wp.Wait()
	_, open := <-wp.CollectResults()
	assert.False(t, open)
}
