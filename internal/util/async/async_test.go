package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunParallel_Success(t *testing.T) {
	t.Parallel()
	var count atomic.Int32

	tasks := make([]Task, 3)
	for i := range tasks {
		tasks[i] = Task{Name: "task", Func: func(_ context.Context) error {
			count.Add(1)
			return nil
		}}
	}

	require.NoError(t, RunParallel(context.Background(), tasks, 0))
	assert.Equal(t, int32(3), count.Load())
}

func TestRunParallel_EmptyTasks(t *testing.T) {
	t.Parallel()

	assert.NoError(t, RunParallel(context.Background(), nil, 0))
	assert.NoError(t, RunParallel(context.Background(), []Task{}, 2))
}

func TestRunParallel_JoinsErrors(t *testing.T) {
	t.Parallel()
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")

	tasks := []Task{
		{Name: "staging", Func: func(_ context.Context) error { return err1 }},
		{Name: "ok", Func: func(_ context.Context) error { return nil }},
		{Name: "prod", Func: func(_ context.Context) error { return err2 }},
	}

	err := RunParallel(context.Background(), tasks, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, err1)
	assert.ErrorIs(t, err, err2)
	assert.Contains(t, err.Error(), "staging: error 1")
	assert.Contains(t, err.Error(), "prod: error 2")
	assert.NotContains(t, err.Error(), "ok:")
}

func TestRunParallel_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task{{Name: "task", Func: func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}}}

	assert.ErrorIs(t, RunParallel(ctx, tasks, 0), context.Canceled)
}

func TestRunParallel_Limit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		limit int
		want  int32
	}{
		{"unlimited", 0, 5},
		{"limited", 2, 2},
		{"limit above task count", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var peak, current atomic.Int32

			tasks := make([]Task, 5)
			for i := range tasks {
				tasks[i] = Task{Name: "task", Func: func(_ context.Context) error {
					c := current.Add(1)
					for {
						old := peak.Load()
						if c <= old || peak.CompareAndSwap(old, c) {
							break
						}
					}
					time.Sleep(50 * time.Millisecond)
					current.Add(-1)
					return nil
				}}
			}

			require.NoError(t, RunParallel(context.Background(), tasks, tt.limit))
			assert.Equal(t, tt.want, peak.Load())
		})
	}
}
