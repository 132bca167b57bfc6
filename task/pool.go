package task

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Pool dispatches recursive sub-tree tasks. A task of depth less than the
// Pool's async-depth bound runs on its own goroutine if one of the Pool's
// slots is free. Otherwise, it runs inline within the dispatching goroutine.
// Dispatch never blocks waiting for a slot, so a task may itself dispatch
// further tasks without risk of exhausting the Pool.
type Pool struct {
	sem        *semaphore.Weighted
	asyncDepth int

	live    atomic.Int64
	maxLive atomic.Int64
	async   atomic.Int64
	inline  atomic.Int64
	deepest atomic.Int64
}

// Stats of a Pool's dispatches.
type Stats struct {
	// Async is the number of tasks run on their own goroutine.
	Async int64
	// Inline is the number of tasks run within the dispatching goroutine.
	Inline int64
	// MaxLive is the greatest number of async tasks observed running at once.
	MaxLive int64
	// DeepestAsync is the greatest depth of any async task, or -1 if none.
	DeepestAsync int64
}

// NewPool returns a Pool of |size| slots, which runs tasks asynchronously
// only if their depth is less than |asyncDepth|. A Pool of zero size runs
// all tasks inline.
func NewPool(size, asyncDepth int) *Pool {
	var p = &Pool{asyncDepth: asyncDepth}
	if size > 0 {
		p.sem = semaphore.NewWeighted(int64(size))
	}
	p.deepest.Store(-1)
	return p
}

// Stats returns dispatch statistics of the Pool.
func (p *Pool) Stats() Stats {
	return Stats{
		Async:        p.async.Load(),
		Inline:       p.inline.Load(),
		MaxLive:      p.maxLive.Load(),
		DeepestAsync: p.deepest.Load(),
	}
}

// Join returns a new barrier over tasks dispatched through the Pool.
func (p *Pool) Join() *Join { return &Join{pool: p} }

// Join is a barrier over a set of sibling tasks. Wait returns after all
// tasks dispatched with Go have completed.
type Join struct {
	pool *Pool
	wg   sync.WaitGroup

	mu  sync.Mutex
	err error
}

// Go dispatches |fn|, a task of |depth| described by |desc|. The task runs
// asynchronously, or has completed by the time Go returns. A failed task is
// logged, and its error is returned by Wait.
func (j *Join) Go(depth int, desc string, fn func() error) {
	var p = j.pool

	if depth < p.asyncDepth && p.sem != nil && p.sem.TryAcquire(1) {
		p.async.Add(1)
		p.observeLive(p.live.Add(1))
		p.observeDepth(int64(depth))

		j.wg.Add(1)
		go func() {
			defer j.wg.Done()
			defer p.sem.Release(1)
			defer p.live.Add(-1)

			j.fail(desc, fn())
		}()
		return
	}
	p.inline.Add(1)
	j.fail(desc, fn())
}

// Wait for all dispatched tasks, returning the first encountered error.
func (j *Join) Wait() error {
	j.wg.Wait()

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Join) fail(desc string, err error) {
	if err == nil {
		return
	}
	err = errors.WithMessage(err, desc)
	log.WithField("err", err).Warn("sub-tree task failed")

	j.mu.Lock()
	if j.err == nil {
		j.err = err
	}
	j.mu.Unlock()
}

func (p *Pool) observeLive(n int64) {
	for {
		var cur = p.maxLive.Load()
		if n <= cur || p.maxLive.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (p *Pool) observeDepth(d int64) {
	for {
		var cur = p.deepest.Load()
		if d <= cur || p.deepest.CompareAndSwap(cur, d) {
			return
		}
	}
}
