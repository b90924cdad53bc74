package tracing

import (
	"strings"
	"testing"
)

func TestRequestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		got := requestSampler(tt.rate).Description()
		if !strings.Contains(got, tt.want) {
			t.Errorf("requestSampler(%g).Description() = %q, want it to contain %q", tt.rate, got, tt.want)
		}
	}
}
