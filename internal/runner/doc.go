// Package runner provides the tick-driven load engine for tide.
//
// A run is a sequence of ticks. On every tick, while the configured duration
// has not elapsed, the runner launches exactly Concurrency logical requests
// and waits for all of them (the barrier) before pacing to the next tick:
//
//	exec := runner.NewRetryExecutor(runner.ExecutorConfig{
//		Requester: getter,
//		Recorder:  acc,
//		Policy:    runner.DefaultRetryPolicy(2),
//	})
//	r := runner.New(runner.Options{
//		Concurrency: 5,
//		Duration:    10 * time.Second,
//		Executor:    exec,
//	})
//	result := r.Run(ctx)
//
// # Logical Requests
//
// A [RetryExecutor] performs one logical request: up to MaxRetries+1
// sequential attempts through a [Requester], sleeping a fixed backoff between
// transport failures. Any response, whatever its status code, ends the
// sequence as a success. Exactly one latency (that of the final attempt) and
// exactly one counter increment reach the [Recorder] per logical request.
//
// # Cancellation
//
// [Runner.Run] races the tick loop against ctx. When ctx is cancelled first,
// Run returns at once and the requests of the active tick are abandoned:
// they are not awaited, and an abandoned request records nothing. Issued is
// never decremented, so an interrupted run may report more issued requests
// than completed ones. This is best-effort truncation, not a drain.
package runner
