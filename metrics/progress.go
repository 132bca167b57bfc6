package metrics

import (
	"fmt"
	"sync/atomic"
)

// Progress is a monotonic processed / total counter of a running job. It may
// be updated and polled concurrently. The zero value is ready for use.
type Progress struct {
	processed atomic.Int64
	total     atomic.Int64
}

// Reset the Progress to zero processed of zero total.
func (p *Progress) Reset() {
	p.processed.Store(0)
	p.total.Store(0)
}

// SetTotal sets the total amount of work of the job.
func (p *Progress) SetTotal(n int64) { p.total.Store(n) }

// Add |n| units of completed work. |n| must be non-negative.
func (p *Progress) Add(n int64) {
	if n < 0 {
		panic("Progress.Add of negative amount")
	}
	p.processed.Add(n)
}

// Snapshot returns the current processed and total amounts.
func (p *Progress) Snapshot() (processed, total int64) {
	return p.processed.Load(), p.total.Load()
}

func (p *Progress) String() string {
	var processed, total = p.Snapshot()
	return fmt.Sprintf("%d/%d", processed, total)
}
