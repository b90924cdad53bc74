package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Result captures the run summary owned by the scheduler.
type Result struct {
	Issued      int64 // logical requests launched, never decremented
	Ticks       int64 // completed ticks; an interrupted tick is not counted
	Duration    time.Duration
	Interrupted bool // ctx ended before the duration elapsed
}

// Runner drives ticks of concurrent logical requests for a fixed duration.
// A Runner is single-use.
type Runner struct {
	opt    Options
	issued atomic.Int64
	ticks  atomic.Int64
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Issued returns the number of logical requests launched so far.
func (r *Runner) Issued() int64 { return r.issued.Load() }

// Run races the tick loop against ctx. If ctx ends first, Run returns
// without waiting for the active tick.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	done := make(chan bool, 1)
	go func() {
		done <- r.schedule(ctx, start)
	}()

	var interrupted bool
	select {
	case completed := <-done:
		interrupted = !completed
	case <-ctx.Done():
		interrupted = true
		r.opt.Logger.Warn("interrupt received, abandoning in-flight requests",
			zap.Int64("issued", r.issued.Load()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	return Result{
		Issued:      r.issued.Load(),
		Ticks:       r.ticks.Load(),
		Duration:    time.Since(start),
		Interrupted: interrupted,
	}
}

// schedule reports true when the duration elapsed and false when ctx ended.
func (r *Runner) schedule(ctx context.Context, start time.Time) bool {
	limiter := r.opt.LimiterFactory(r.opt.Interval)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return false
		}
		elapsed := time.Since(start)
		if elapsed >= r.opt.Duration {
			return true
		}
		r.logTick(elapsed)
		r.dispatch(ctx)
		r.ticks.Add(1)
	}
}

func (r *Runner) dispatch(ctx context.Context) {
	var wg conc.WaitGroup
	for i := 0; i < r.opt.Concurrency; i++ {
		r.issued.Add(1)
		wg.Go(func() {
			out, err := r.opt.Executor.Execute(ctx)
			if err == nil {
				return
			}
			if ctx.Err() != nil {
				r.opt.Logger.Debug("request abandoned", zap.Error(err))
				return
			}
			r.opt.Logger.Error("request failed",
				zap.Error(err),
				zap.Duration("latency", out.Latency),
				zap.Int("attempts", out.Attempts),
			)
		})
	}
	wg.Wait()
}

func (r *Runner) logTick(elapsed time.Duration) {
	remaining := r.opt.Duration - elapsed
	if remaining < 0 {
		remaining = 0
	}
	fields := []zap.Field{
		zap.Int64("tick", r.ticks.Load()+1),
		zap.Duration("elapsed", elapsed),
		zap.Duration("remaining", remaining),
		zap.Int("concurrency", r.opt.Concurrency),
	}
	if r.opt.RunID != "" {
		fields = append(fields, zap.String("run_id", r.opt.RunID))
	}
	if r.opt.Live != nil {
		live := r.opt.Live.Live()
		fields = append(fields,
			zap.Int64("successes", live.Successes),
			zap.Int64("failures", live.Failures),
			zap.Duration("p99", live.P99),
		)
	}
	r.opt.Logger.Info("dispatching tick", fields...)
}
