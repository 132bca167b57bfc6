package task

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupBoundsRunningTasks(t *testing.T) {
	var g = NewGroup(context.Background(), 2)
	var live, maxLive, ran atomic.Int64

	for i := 0; i != 6; i++ {
		g.Queue(fmt.Sprintf("task %d", i), func(ctx context.Context) error {
			var n = live.Add(1)
			for {
				var cur = maxLive.Load()
				if n <= cur || maxLive.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			live.Add(-1)
			ran.Add(1)
			return nil
		})
	}
	assert.Equal(t, 6, g.Len())
	g.GoRun()
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(6), ran.Load())
	assert.LessOrEqual(t, maxLive.Load(), int64(2))
	assert.Error(t, g.Context().Err()) // Cancelled on completion.
}

func TestGroupReturnsDescribedError(t *testing.T) {
	var g = NewGroup(context.Background(), 0)
	g.Queue("page 0", func(context.Context) error { return nil })
	g.Queue("page 1", func(context.Context) error { return errors.New("boom") })
	g.GoRun()

	assert.EqualError(t, g.Wait(), "page 1: boom")
	assert.Panics(t, func() { g.GoRun() })
	assert.Panics(t, func() { g.Queue("late", nil) })
}

func TestIndependentGroupRunsPastFailure(t *testing.T) {
	var g = NewIndependentGroup(context.Background(), 1)
	var failed = make(chan struct{})
	var ran atomic.Int64

	g.Queue("page 0", func(context.Context) error {
		defer close(failed)
		return errors.New("boom")
	})
	for i := 1; i != 4; i++ {
		g.Queue(fmt.Sprintf("page %d", i), func(ctx context.Context) error {
			<-failed
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ran.Add(1)
			return nil
		})
	}
	g.GoRun()

	assert.EqualError(t, g.Wait(), "page 0: boom")
	assert.Equal(t, int64(3), ran.Load())

	// A Group of dependent tasks cancels its Context on first failure.
	g = NewGroup(context.Background(), 0)
	g.Queue("page 0", func(context.Context) error { return errors.New("boom") })
	g.Queue("page 1", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	g.GoRun()
	assert.EqualError(t, g.Wait(), "page 0: boom")
}

func TestGroupWaitBeforeGoRunPanics(t *testing.T) {
	assert.Panics(t, func() { _ = NewGroup(context.Background(), 1).Wait() })
}

// populate dispatches |fanout| tasks at |depth|, each of which recursively
// populates the next depth, until |maxDepth|.
func populate(p *Pool, depth, maxDepth, fanout int, visited *atomic.Int64) error {
	if depth == maxDepth {
		return nil
	}
	var join = p.Join()
	for i := 0; i != fanout; i++ {
		join.Go(depth, fmt.Sprintf("depth %d #%d", depth, i), func() error {
			visited.Add(1)
			time.Sleep(time.Millisecond)
			return populate(p, depth+1, maxDepth, fanout, visited)
		})
	}
	return join.Wait()
}

func TestPoolBoundsFanOutAndDepth(t *testing.T) {
	var p = NewPool(2, 2)
	var visited atomic.Int64

	require.NoError(t, populate(p, 0, 4, 3, &visited))

	var stats = p.Stats()
	assert.Equal(t, int64(3+9+27+81), visited.Load())
	assert.Equal(t, visited.Load(), stats.Async+stats.Inline)
	assert.LessOrEqual(t, stats.MaxLive, int64(2))
	assert.GreaterOrEqual(t, stats.Async, int64(1))
	// Tasks at depths two and three always run inline.
	assert.GreaterOrEqual(t, stats.Inline, int64(27+81))
	assert.LessOrEqual(t, stats.DeepestAsync, int64(1))
}

func TestZeroSizePoolRunsInline(t *testing.T) {
	var p = NewPool(0, 8)
	var visited atomic.Int64

	require.NoError(t, populate(p, 0, 3, 2, &visited))
	assert.Equal(t, Stats{Inline: 2 + 4 + 8, DeepestAsync: -1}, p.Stats())
}

func TestPoolPropagatesErrorsToJoin(t *testing.T) {
	var p = NewPool(4, 1)
	var join = p.Join()
	var ran atomic.Int64

	for i := 0; i != 3; i++ {
		i := i
		join.Go(0, fmt.Sprintf("child %d", i), func() error {
			ran.Add(1)
			if i == 1 {
				return errors.New("bad row")
			}
			return nil
		})
	}
	assert.EqualError(t, join.Wait(), "child 1: bad row")
	assert.Equal(t, int64(3), ran.Load()) // Siblings still complete.
}
