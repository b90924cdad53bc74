// Package output renders the final report of a run as a table, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/torosent/tide/internal/metrics"
	"github.com/torosent/tide/internal/threshold"
)

// EmptyNotice is printed instead of statistics when nothing completed.
const EmptyNotice = "No requests were completed. Please check your network or target URL."

const (
	labelWidth    = 25
	minValueWidth = 40
)

// RunInfo carries what the scheduler knows about a finished run.
type RunInfo struct {
	RunID       string
	TargetURL   string
	Concurrency int
	Issued      int64
	Ticks       int64
	Elapsed     time.Duration
	Interrupted bool
}

// Latency holds summary latencies in milliseconds.
type Latency struct {
	Min     float64 `json:"min" yaml:"min"`
	Median  float64 `json:"median" yaml:"median"`
	Max     float64 `json:"max" yaml:"max"`
	Average float64 `json:"average" yaml:"average"`
	P90     float64 `json:"p90" yaml:"p90"`
	P99     float64 `json:"p99" yaml:"p99"`
}

// Report is the rendered-format-independent result of a run.
type Report struct {
	RunID              string             `json:"run_id" yaml:"run_id"`
	TargetURL          string             `json:"target_url" yaml:"target_url"`
	Concurrency        int                `json:"concurrency" yaml:"concurrency"`
	DurationSeconds    float64            `json:"duration_seconds" yaml:"duration_seconds"`
	Interrupted        bool               `json:"interrupted" yaml:"interrupted"`
	Ticks              int64              `json:"ticks" yaml:"ticks"`
	TotalRequests      int64              `json:"total_requests" yaml:"total_requests"`
	SuccessfulRequests int64              `json:"successful_requests" yaml:"successful_requests"`
	FailedRequests     int64              `json:"failed_requests" yaml:"failed_requests"`
	RequestsPerSec     float64            `json:"requests_per_sec" yaml:"requests_per_sec"`
	Empty              bool               `json:"empty" yaml:"empty"`
	LatencyMs          *Latency           `json:"latency_ms,omitempty" yaml:"latency_ms,omitempty"`
	StatusCodes        []metrics.Bucket   `json:"status_codes,omitempty" yaml:"status_codes,omitempty"`
	Errors             []metrics.Bucket   `json:"errors,omitempty" yaml:"errors,omitempty"`
	Thresholds         []threshold.Result `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`

	Stats metrics.Stats `json:"-" yaml:"-"`
}

// Build summarizes a final snapshot. It does not modify snap, so building
// twice from the same snapshot yields the same Report.
func Build(snap metrics.Snapshot, info RunInfo) Report {
	stats := metrics.Summarize(snap, info.Elapsed)
	r := Report{
		RunID:              info.RunID,
		TargetURL:          info.TargetURL,
		Concurrency:        info.Concurrency,
		DurationSeconds:    info.Elapsed.Seconds(),
		Interrupted:        info.Interrupted,
		Ticks:              info.Ticks,
		TotalRequests:      info.Issued,
		SuccessfulRequests: stats.Successes,
		FailedRequests:     stats.Failures,
		RequestsPerSec:     stats.RequestsPerSec,
		Empty:              stats.Empty(),
		StatusCodes:        metrics.FlattenStatusCodes(snap.StatusCodes),
		Errors:             metrics.FlattenErrors(snap.Errors),
		Stats:              stats,
	}
	if !r.Empty {
		r.LatencyMs = &Latency{
			Min:     toMs(stats.Min),
			Median:  toMs(stats.Median),
			Max:     toMs(stats.Max),
			Average: toMs(stats.Average),
			P90:     toMs(stats.P90),
			P99:     toMs(stats.P99),
		}
	}
	return r
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, r Report) {
	if r.Empty {
		fmt.Fprintln(w)
		color.New(color.FgRed).Fprintln(w, EmptyNotice)
		printThresholds(w, r.Thresholds)
		return
	}

	rows := [][]string{
		{"Run ID", r.RunID},
		{"Target URL", r.TargetURL},
		{"Concurrency", fmt.Sprintf("%d", r.Concurrency)},
		{"Duration", fmt.Sprintf("%.3fs", r.DurationSeconds)},
		{"Total Requests", fmt.Sprintf("%d", r.TotalRequests)},
		{"Successful Requests", fmt.Sprintf("%d", r.SuccessfulRequests)},
		{"Failed Requests", fmt.Sprintf("%d", r.FailedRequests)},
		{"Min Request Time", formatMs(r.LatencyMs.Min)},
		{"Median Request Time", formatMs(r.LatencyMs.Median)},
		{"Max Request Time", formatMs(r.LatencyMs.Max)},
		{"Average Request Time", formatMs(r.LatencyMs.Average)},
		{"P90 Request Time", formatMs(r.LatencyMs.P90)},
		{"P99 Request Time", formatMs(r.LatencyMs.P99)},
		{"Requests/sec", fmt.Sprintf("%.2f", r.RequestsPerSec)},
		{"Ticks", fmt.Sprintf("%d", r.Ticks)},
		{"Status Codes", formatBuckets(r.StatusCodes)},
	}
	if len(r.Errors) > 0 {
		rows = append(rows, []string{"Errors", formatBuckets(r.Errors)})
	}
	if r.Interrupted {
		rows = append(rows, []string{"Interrupted", "yes"})
	}

	valueWidth := minValueWidth
	if len(r.TargetURL) > valueWidth {
		valueWidth = len(r.TargetURL)
	}
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		BorderRow(true).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return cell.Width(labelWidth + 2)
			}
			return cell.Width(valueWidth + 2)
		}).
		Rows(rows...)

	fmt.Fprintln(w, "\n*** Summary Report ***")
	fmt.Fprintln(w, t.String())
	printThresholds(w, r.Thresholds)
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

func printThresholds(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	pass := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	fmt.Fprintln(w, "\nThresholds:")
	for _, res := range results {
		c := pass
		if !res.Pass {
			c = fail
		}
		c.Fprintf(w, "  %s\n", res.Message)
	}
}

func formatBuckets(buckets []metrics.Bucket) string {
	if len(buckets) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(buckets))
	for _, b := range buckets {
		parts = append(parts, fmt.Sprintf("%s: %d", b.Label, b.Count))
	}
	return strings.Join(parts, ", ")
}

func formatMs(v float64) string {
	return fmt.Sprintf("%.3fms", v)
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
