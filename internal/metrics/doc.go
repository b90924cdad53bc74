// Package metrics accumulates per-request outcomes for a load run.
//
// The [Accumulator] is shared by every in-flight logical request. Each of its
// cells is synchronized on its own so that concurrent writers touching
// different cells never contend:
//
//   - successes and failures are atomic counters
//   - the latency sequence (and the live histogram fed from it) sits behind
//     one mutex
//   - status-code and error-name breakdowns each have their own mutex
//
// Every logical request records exactly one latency and increments exactly one
// counter:
//
//	acc := metrics.NewAccumulator()
//	acc.RecordSuccess(12*time.Millisecond, 200)
//	acc.RecordFailure(3*time.Second, err)
//
//	snap := acc.Snapshot()
//	// snap.Successes + snap.Failures == len(snap.Latencies)
//
// Reads taken while requests are still running are best-effort. A
// [Snapshot] is final only after every writer has returned.
//
// # Live View
//
// [Accumulator.Live] reads completed counts and histogram quantiles without
// copying the latency slice. It is meant for periodic progress lines, not for
// the final report.
package metrics
