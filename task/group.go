// Package task runs groups of concurrent work. A Group executes independent,
// queued tasks with a bound on the number running at once. A Pool populates
// recursive sub-trees, running them asynchronously only near the top of the
// tree and only while it has a free slot.
package task

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Group is a group of tasks which should each be executed concurrently,
// and which should be collectively blocked on until all are complete.
// At most |limit| tasks of the Group run at once. The first task to return a
// non-nil error cancels the Group Context, but tasks already running are
// not interrupted and Wait still blocks for all started tasks. While Group is
// used to invoke and wait on multiple goroutines, it is not itself
// thread-safe.
type Group struct {
	// Context of the Group, which is cancelled by:
	//  * Any function of the Group returning non-nil error, or
	//  * An explicit call to Cancel, or
	//  * A cancellation of the parent Context of the Group.
	ctx context.Context
	// Cancels Context.
	cancelFn context.CancelFunc

	tasks   []task
	eg      *errgroup.Group
	started bool
}

// NewIndependentGroup returns a Group like NewGroup, except that a failing
// task doesn't cancel the Group Context. Other tasks run to completion, and
// Wait returns the first error.
func NewIndependentGroup(ctx context.Context, limit int) *Group {
	ctx, cancel := context.WithCancel(ctx)
	var eg = new(errgroup.Group)

	if limit > 0 {
		eg.SetLimit(limit)
	}
	return &Group{ctx: ctx, eg: eg, cancelFn: cancel}
}

// task composes a runnable and its description.
type task struct {
	desc string
	fn   func(context.Context) error
}

// NewGroup returns a new, empty Group with the given Context, which runs up
// to |limit| tasks at once. A |limit| <= 0 is unbounded.
func NewGroup(ctx context.Context, limit int) *Group {
	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)

	if limit > 0 {
		eg.SetLimit(limit)
	}
	return &Group{ctx: ctx, eg: eg, cancelFn: cancel}
}

// Context returns the Group Context.
func (g *Group) Context() context.Context { return g.ctx }

// Cancel the Group Context.
func (g *Group) Cancel() { g.cancelFn() }

// Len returns the number of queued tasks.
func (g *Group) Len() int { return len(g.tasks) }

// Queue a function for execution with the Group. The function is passed the
// Group Context. Cannot be called after GoRun is invoked or Queue panics.
func (g *Group) Queue(desc string, fn func(context.Context) error) {
	if g.started {
		panic("Queue called after GoRun")
	}
	g.tasks = append(g.tasks, task{desc: desc, fn: fn})
}

// GoRun all queued functions, in queued order. GoRun blocks while the Group
// is at its limit, until a running task completes. GoRun may be called only
// once: the second invocation will panic.
func (g *Group) GoRun() {
	if g.started {
		panic("GoRun already called")
	}
	g.started = true

	for i := range g.tasks {
		var t = g.tasks[i]
		g.eg.Go(func() error { return errors.WithMessage(t.fn(g.ctx), t.desc) })
	}
}

// Wait for started functions, returning only after all complete.
// The first encountered non-nil error is returned.
// GoRun must have been called or Wait panics.
func (g *Group) Wait() error {
	if !g.started {
		panic("Wait called before GoRun")
	}
	defer g.cancelFn()
	return g.eg.Wait()
}
