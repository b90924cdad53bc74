package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Accumulator records per-request outcomes in a thread-safe manner.
type Accumulator struct {
	successes atomic.Int64
	failures  atomic.Int64

	latMu     sync.Mutex
	latencies []time.Duration
	hist      *hdrhistogram.Histogram

	statusMu    sync.Mutex
	statusCodes map[int]int64

	errMu        sync.Mutex
	errorsByType map[string]int64
}

// Snapshot is a copy of every accumulator cell.
type Snapshot struct {
	Successes   int64
	Failures    int64
	Latencies   []time.Duration
	StatusCodes map[int]int64
	Errors      map[string]int64
}

// Completed returns the number of logical requests that reached an outcome.
func (s Snapshot) Completed() int64 {
	return s.Successes + s.Failures
}

// LiveStats is a cheap, possibly inconsistent view used while a run is active.
type LiveStats struct {
	Successes int64
	Failures  int64
	P50       time.Duration
	P99       time.Duration
}

func NewAccumulator() *Accumulator {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Accumulator{
		hist:         h,
		statusCodes:  make(map[int]int64),
		errorsByType: make(map[string]int64),
	}
}

// RecordSuccess records a logical request that received a response.
// Any status code counts; statusCode <= 0 is not bucketed.
func (a *Accumulator) RecordSuccess(latency time.Duration, statusCode int) {
	a.appendLatency(latency)
	if statusCode > 0 {
		a.statusMu.Lock()
		a.statusCodes[statusCode]++
		a.statusMu.Unlock()
	}
	a.successes.Add(1)
}

// RecordFailure records a logical request that exhausted its attempts.
// latency is the duration of the final attempt.
func (a *Accumulator) RecordFailure(latency time.Duration, err error) {
	a.appendLatency(latency)
	a.errMu.Lock()
	a.errorsByType[ErrorLabel(err)]++
	a.errMu.Unlock()
	a.failures.Add(1)
}

func (a *Accumulator) appendLatency(latency time.Duration) {
	if latency < 0 {
		latency = 0
	}
	a.latMu.Lock()
	defer a.latMu.Unlock()

	a.latencies = append(a.latencies, latency)

	us := latency.Microseconds()
	if us < a.hist.LowestTrackableValue() {
		us = a.hist.LowestTrackableValue()
	}
	if us > a.hist.HighestTrackableValue() {
		us = a.hist.HighestTrackableValue()
	}
	_ = a.hist.RecordValue(us)
}

// Snapshot copies the accumulator state. The latency cell is read first so a
// snapshot taken mid-run never reports more completions than latencies.
func (a *Accumulator) Snapshot() Snapshot {
	a.latMu.Lock()
	latencies := make([]time.Duration, len(a.latencies))
	copy(latencies, a.latencies)
	a.latMu.Unlock()

	snap := Snapshot{
		Successes:   a.successes.Load(),
		Failures:    a.failures.Load(),
		Latencies:   latencies,
		StatusCodes: make(map[int]int64),
		Errors:      make(map[string]int64),
	}

	a.statusMu.Lock()
	for code, n := range a.statusCodes {
		snap.StatusCodes[code] = n
	}
	a.statusMu.Unlock()

	a.errMu.Lock()
	for name, n := range a.errorsByType {
		snap.Errors[name] = n
	}
	a.errMu.Unlock()

	return snap
}

// Live returns counters and histogram quantiles without copying latencies.
func (a *Accumulator) Live() LiveStats {
	stats := LiveStats{
		Successes: a.successes.Load(),
		Failures:  a.failures.Load(),
	}
	a.latMu.Lock()
	if a.hist.TotalCount() > 0 {
		stats.P50 = time.Duration(a.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P99 = time.Duration(a.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	a.latMu.Unlock()
	return stats
}
