package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitepulse/internal/pkg/async"
)

func TestExecuteCollectsResultsByName(t *testing.T) {
	pool := async.NewPool(3)

	tasks := []async.Task{
		{Name: "a", Execute: func() (interface{}, error) { return 1, nil }},
		{Name: "b", Execute: func() (interface{}, error) { return "two", nil }},
		{Name: "c", Execute: func() (interface{}, error) { return nil, errors.New("boom") }},
	}

	results := pool.Execute(context.Background(), tasks)

	require.Len(t, results, 3)
	assert.Equal(t, 1, results["a"].Data)
	assert.Equal(t, "two", results["b"].Data)
	assert.EqualError(t, results["c"].Err, "boom")
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	pool := async.NewPool(2)

	var running, peak int32
	tasks := make([]async.Task, 10)
	for i := range tasks {
		tasks[i] = async.Task{
			Name: fmt.Sprintf("task-%d", i),
			Execute: func() (interface{}, error) {
				current := atomic.AddInt32(&running, 1)
				for {
					observed := atomic.LoadInt32(&peak)
					if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
						break
					}
				}
				atomic.AddInt32(&running, -1)
				return nil, nil
			},
		}
	}

	results := pool.Execute(context.Background(), tasks)

	assert.Len(t, results, 10)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestExecuteReturnsOnCancelledContext(t *testing.T) {
	pool := async.NewPool(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []async.Task{
		{Name: "a", Execute: func() (interface{}, error) { return nil, nil }},
		{Name: "b", Execute: func() (interface{}, error) { return nil, nil }},
	}

	// Must not deadlock; completed tasks, if any, are still reported.
	results := pool.Execute(ctx, tasks)
	assert.LessOrEqual(t, len(results), 2)
}

func TestExecuteEmptyTaskList(t *testing.T) {
	pool := async.NewPool(4)

	results := pool.Execute(context.Background(), nil)
	assert.Empty(t, results)
}
