package runner

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/torosent/tide/internal/tracing"
)

// DefaultBackoff is the fixed pause between a failed attempt and the next one.
const DefaultBackoff = 200 * time.Millisecond

// Outcome describes how a logical request ended.
type Outcome struct {
	Attempts   int
	Latency    time.Duration // elapsed time of the final attempt
	StatusCode int
	Success    bool
}

// ExhaustedError is returned when every attempt of a logical request failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("request failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	MaxRetries int           // attempts after the first; total attempts is MaxRetries+1
	Backoff    time.Duration // fixed delay between attempts
}

// DefaultRetryPolicy returns a policy with the standard backoff.
func DefaultRetryPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, Backoff: DefaultBackoff}
}

func (p RetryPolicy) attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// ExecutorConfig wires a RetryExecutor.
type ExecutorConfig struct {
	Requester Requester
	Recorder  Recorder
	Policy    RetryPolicy
	Logger    *zap.Logger  // nil means no logging
	Tracer    trace.Tracer // nil means no spans
	Target    string       // recorded on spans
	RunID     string       // recorded on spans
}

// RetryExecutor performs logical requests with bounded retries.
// It holds no per-request state and is safe for concurrent use.
type RetryExecutor struct {
	requester Requester
	recorder  Recorder
	policy    RetryPolicy
	logger    *zap.Logger
	tracer    trace.Tracer
	target    string
	spanAttrs []attribute.KeyValue
}

// NewRetryExecutor builds a RetryExecutor from cfg.
func NewRetryExecutor(cfg ExecutorConfig) *RetryExecutor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	var spanAttrs []attribute.KeyValue
	if cfg.RunID != "" {
		spanAttrs = append(spanAttrs, attribute.String("tide.run_id", cfg.RunID))
	}
	return &RetryExecutor{
		requester: cfg.Requester,
		recorder:  cfg.Recorder,
		policy:    cfg.Policy,
		logger:    logger,
		tracer:    tracer,
		target:    cfg.Target,
		spanAttrs: spanAttrs,
	}
}

// Execute runs one logical request. Exactly one of RecordSuccess or
// RecordFailure is called, with the latency of the final attempt, unless ctx
// ends first; an abandoned request records nothing and returns ctx.Err().
func (e *RetryExecutor) Execute(ctx context.Context) (Outcome, error) {
	ctx, span := tracing.StartRequestSpan(ctx, e.tracer, e.target, e.spanAttrs...)

	total := e.policy.attempts()
	var (
		lastErr     error
		lastLatency time.Duration
	)
	for attempt := 1; attempt <= total; attempt++ {
		if err := ctx.Err(); err != nil {
			tracing.EndSpan(span, err, attribute.Int("tide.attempts", attempt-1))
			return Outcome{Attempts: attempt - 1}, err
		}

		start := time.Now()
		status, err := e.requester.Do(ctx)
		latency := time.Since(start)

		if err == nil {
			e.recorder.RecordSuccess(latency, status)
			e.logger.Info("request succeeded",
				zap.Duration("latency", latency),
				zap.Int("status", status),
				zap.Int("attempt", attempt),
			)
			tracing.EndSpan(span, nil,
				attribute.Int("http.response.status_code", status),
				attribute.Int("tide.attempts", attempt),
			)
			return Outcome{Attempts: attempt, Latency: latency, StatusCode: status, Success: true}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			tracing.EndSpan(span, ctxErr, attribute.Int("tide.attempts", attempt))
			return Outcome{Attempts: attempt, Latency: latency}, ctxErr
		}

		lastErr, lastLatency = err, latency
		tracing.RecordAttemptFailure(span, attempt, err)
		if attempt == total {
			break
		}

		e.logger.Warn("request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", total),
			zap.Error(err),
		)
		if err := sleepContext(ctx, e.policy.Backoff); err != nil {
			tracing.EndSpan(span, err, attribute.Int("tide.attempts", attempt))
			return Outcome{Attempts: attempt, Latency: latency}, err
		}
	}

	e.recorder.RecordFailure(lastLatency, lastErr)
	exhausted := &ExhaustedError{Attempts: total, Err: lastErr}
	tracing.EndSpan(span, exhausted, attribute.Int("tide.attempts", total))
	return Outcome{Attempts: total, Latency: lastLatency}, exhausted
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
