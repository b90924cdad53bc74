package metrics

import (
	"math"
	"math/bits"
	"slices"
	"time"
)

// Stats summarizes a final Snapshot.
type Stats struct {
	Total          int64 // logical requests with an outcome
	Successes      int64
	Failures       int64
	Min            time.Duration
	Max            time.Duration
	Median         time.Duration
	Average        time.Duration
	P90            time.Duration
	P99            time.Duration
	Elapsed        time.Duration
	RequestsPerSec float64
}

// Empty reports whether no latency was recorded.
func (s Stats) Empty() bool { return s.Total == 0 }

// FailureRate returns failures over completed requests, or 0 when empty.
func (s Stats) FailureRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Total)
}

// Summarize computes Stats from snap without modifying it. The median is the
// upper median, sorted[len/2], and the average is the integer nanosecond mean,
// saturating at math.MaxInt64.
func Summarize(snap Snapshot, elapsed time.Duration) Stats {
	stats := Stats{
		Successes: snap.Successes,
		Failures:  snap.Failures,
		Total:     int64(len(snap.Latencies)),
		Elapsed:   elapsed,
	}
	if elapsed > 0 {
		stats.RequestsPerSec = float64(stats.Total) / elapsed.Seconds()
	}
	if len(snap.Latencies) == 0 {
		return stats
	}

	sorted := slices.Clone(snap.Latencies)
	slices.Sort(sorted)

	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	stats.Median = sorted[len(sorted)/2]
	stats.Average = mean(sorted)
	stats.P90 = nearestRank(sorted, 90)
	stats.P99 = nearestRank(sorted, 99)
	return stats
}

func mean(latencies []time.Duration) time.Duration {
	var hi, lo uint64
	for _, d := range latencies {
		if d < 0 {
			continue
		}
		var carry uint64
		lo, carry = bits.Add64(lo, uint64(d), 0)
		hi += carry
	}
	n := uint64(len(latencies))
	if hi >= n {
		return time.Duration(math.MaxInt64)
	}
	q, _ := bits.Div64(hi, lo, n)
	if q > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(q)
}

func nearestRank(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
