package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	runsCreatedTotal    atomic.Uint64
	runsDispatchedTotal atomic.Uint64
	dispatchFailedTotal atomic.Uint64
	callbacksTotal      atomic.Uint64
	callbacksRejected   atomic.Uint64
	runsUsedTotal       atomic.Uint64
	runsDiscardedTotal  atomic.Uint64
	documentEditsTotal  atomic.Uint64

	dispatchDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncRunCreated counts analysis runs created.
func IncRunCreated() { runsCreatedTotal.Add(1) }

// IncRunDispatched counts runs handed to the worker.
func IncRunDispatched() { runsDispatchedTotal.Add(1) }

// IncDispatchFailed counts dispatch attempts that exhausted their retries.
func IncDispatchFailed() { dispatchFailedTotal.Add(1) }

// IncCallbackReceived counts accepted worker callbacks.
func IncCallbackReceived() { callbacksTotal.Add(1) }

// IncCallbackRejected counts callbacks refused for auth or payload reasons.
func IncCallbackRejected() { callbacksRejected.Add(1) }

func IncRunUsed()      { runsUsedTotal.Add(1) }
func IncRunDiscarded() { runsDiscardedTotal.Add(1) }
func IncDocumentEdit() { documentEditsTotal.Add(1) }

// ObserveDispatchDurationMs records a dispatch duration in milliseconds.
func ObserveDispatchDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	dispatchDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analysis_runs_created_total", "Analysis runs created", runsCreatedTotal.Load())
	writeCounter(&buf, "analysis_runs_dispatched_total", "Analysis runs dispatched to the worker", runsDispatchedTotal.Load())
	writeCounter(&buf, "analysis_dispatch_failed_total", "Dispatches that failed after retries", dispatchFailedTotal.Load())
	writeCounter(&buf, "analysis_callbacks_total", "Worker callbacks applied", callbacksTotal.Load())
	writeCounter(&buf, "analysis_callbacks_rejected_total", "Worker callbacks rejected", callbacksRejected.Load())
	writeCounter(&buf, "analysis_runs_used_total", "Analysis runs activated for billing", runsUsedTotal.Load())
	writeCounter(&buf, "analysis_runs_discarded_total", "Analysis runs discarded", runsDiscardedTotal.Load())
	writeCounter(&buf, "analysis_document_edits_total", "Staff edits to analysis documents", documentEditsTotal.Load())
	writeHistogram(&buf, "analysis_dispatch_duration_ms", "Dispatch duration in milliseconds", dispatchDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
