package metrics

import (
	"sort"
	"strconv"
)

// Bucket is one row of a status-code or error-name breakdown.
type Bucket struct {
	Label string `json:"label" yaml:"label"`
	Count int64  `json:"count" yaml:"count"`
}

// FlattenStatusCodes converts a status->count map into sorted rows.
// Rows are sorted by descending count, then by label for stability.
func FlattenStatusCodes(codes map[int]int64) []Bucket {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]Bucket, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, Bucket{Label: strconv.Itoa(code), Count: count})
	}
	sortBuckets(rows)
	return rows
}

// FlattenErrors converts an error-label->count map into sorted rows.
func FlattenErrors(errs map[string]int64) []Bucket {
	if len(errs) == 0 {
		return nil
	}
	rows := make([]Bucket, 0, len(errs))
	for label, count := range errs {
		rows = append(rows, Bucket{Label: label, Count: count})
	}
	sortBuckets(rows)
	return rows
}

func sortBuckets(rows []Bucket) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Label < rows[j].Label
		}
		return rows[i].Count > rows[j].Count
	})
}
