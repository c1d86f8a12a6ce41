package metrics

import (
	"strings"
	"testing"
)

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	IncRunCreated()
	IncCallbackRejected()
	ObserveDispatchDurationMs(120)
	ObserveDispatchDurationMs(-5)

	out := Render()
	for _, want := range []string{
		"# TYPE analysis_runs_created_total counter",
		"# TYPE analysis_callbacks_rejected_total counter",
		"# TYPE analysis_dispatch_duration_ms histogram",
		`analysis_dispatch_duration_ms_bucket{le="+Inf"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 2 {
		t.Fatalf("unexpected bucket counts %v", snap.counts)
	}
}
