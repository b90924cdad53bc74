package runner

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/torosent/tide/internal/metrics"
)

// DefaultInterval is the tick cadence of the scheduler.
const DefaultInterval = time.Second

// Requester performs one physical attempt.
// Any received response is reported with its status code and a nil error;
// only transport-level failures return an error.
type Requester interface {
	Do(ctx context.Context) (statusCode int, err error)
}

// Recorder receives the single outcome of each logical request.
type Recorder interface {
	RecordSuccess(latency time.Duration, statusCode int)
	RecordFailure(latency time.Duration, err error)
}

// Executor runs one logical request to completion.
type Executor interface {
	Execute(ctx context.Context) (Outcome, error)
}

// LiveReader exposes a best-effort view of progress for tick logging.
type LiveReader interface {
	Live() metrics.LiveStats
}

// Options configure the Runner.
type Options struct {
	Concurrency    int                                        // logical requests launched per tick
	Duration       time.Duration                              // overall run bound, checked at the top of every tick
	Interval       time.Duration                              // tick cadence (0 means DefaultInterval)
	Executor       Executor                                   // logical request executor (required)
	Live           LiveReader                                 // optional progress source for tick logs
	Logger         *zap.Logger                                // nil means no logging
	RunID          string                                     // attached to tick log lines
	LimiterFactory func(interval time.Duration) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(interval time.Duration) *rate.Limiter {
			// One token per interval with no accumulation: a slow tick is
			// followed immediately by the next, never by a catch-up burst.
			return rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}
