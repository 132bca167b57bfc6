package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"github.com/xiaohan1105/axmltools-sub005/metrics"
)

// ProgressConfig configures rendering of progress bars.
type ProgressConfig struct {
	NoProgress bool          `long:"no-progress" description:"Don't render progress bars"`
	Refresh    time.Duration `long:"progress-refresh" default:"150ms" description:"Refresh interval of progress bars"`
}

// bars renders a progress bar of each watched job to stderr.
type bars struct {
	p       *mpb.Progress
	refresh time.Duration
}

func newBars(ctx context.Context, cfg ProgressConfig) *bars {
	var out io.Writer = os.Stderr
	if cfg.NoProgress {
		out = io.Discard
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = 150 * time.Millisecond
	}
	return &bars{
		p:       mpb.NewWithContext(ctx, mpb.WithOutput(out), mpb.WithRefreshRate(cfg.Refresh)),
		refresh: cfg.Refresh,
	}
}

// watch renders |progress| as a bar labeled |name|, until the returned
// closure is called with the job's outcome.
func (b *bars) watch(name string, progress *metrics.Progress) func(ok bool) {
	var bar = b.p.AddBar(0,
		mpb.PrependDecorators(
			decor.Name(name, decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Name(" "),
			decor.Elapsed(decor.ET_STYLE_GO),
		),
	)
	var update = func() {
		var done, total = progress.Snapshot()
		bar.SetTotal(total, false)
		bar.SetCurrent(done)
	}

	var stop = make(chan struct{})
	var exited = make(chan struct{})

	go func() {
		defer close(exited)
		var ticker = time.NewTicker(b.refresh)
		defer ticker.Stop()

		for {
			update()
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	return func(ok bool) {
		close(stop)
		<-exited

		if ok {
			update()
			bar.SetTotal(-1, true)
		} else {
			bar.Abort(false)
		}
	}
}

// wait for all bars to complete rendering.
func (b *bars) wait() { b.p.Wait() }
