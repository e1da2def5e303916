package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

type counter struct {
	name  string
	help  string
	value atomic.Uint64
}

func newCounter(name, help string) *counter {
	c := &counter{name: name, help: help}
	counters = append(counters, c)
	return c
}

var counters []*counter

var (
	scansUploaded  = newCounter("scans_uploaded_total", "Total report scans accepted")
	scansCompleted = newCounter("scans_completed_total", "Total report scans processed")
	scansChanged   = newCounter("scans_record_changed_total", "Total scans that changed the stored lab record")
	scansFailed    = newCounter("scans_failed_total", "Total report scans that failed")

	ocrRequests = newCounter("ocr_requests_total", "Total OCR provider calls")
	ocrFailures = newCounter("ocr_failures_total", "Total OCR provider calls that failed")

	assessmentsCompleted = newCounter("risk_assessments_total", "Total risk assessments produced")
	assessmentsRefused   = newCounter("risk_assessments_refused_total", "Total risk assessments refused")

	jobsReceived  = newCounter("scan_jobs_received_total", "Total queue messages received")
	jobsCompleted = newCounter("scan_jobs_completed_total", "Total queue messages processed")
	jobsFailed    = newCounter("scan_jobs_failed_total", "Total queue messages left for redelivery")
	jobsDiscarded = newCounter("scan_jobs_discarded_total", "Total unrecoverable queue messages deleted")

	scanDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	httpDuration = newHistogram([]float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000})
)

func IncScansUploaded()  { scansUploaded.value.Add(1) }
func IncScansCompleted() { scansCompleted.value.Add(1) }
func IncScansChanged()   { scansChanged.value.Add(1) }
func IncScansFailed()    { scansFailed.value.Add(1) }

func IncOCRRequests() { ocrRequests.value.Add(1) }
func IncOCRFailures() { ocrFailures.value.Add(1) }

func IncAssessmentsCompleted() { assessmentsCompleted.value.Add(1) }
func IncAssessmentsRefused()   { assessmentsRefused.value.Add(1) }

func IncJobsReceived()  { jobsReceived.value.Add(1) }
func IncJobsCompleted() { jobsCompleted.value.Add(1) }
func IncJobsFailed()    { jobsFailed.value.Add(1) }
func IncJobsDiscarded() { jobsDiscarded.value.Add(1) }

// ObserveScanDurationMs records a scan processing duration in milliseconds.
func ObserveScanDurationMs(value float64) {
	scanDuration.Observe(clamp(value))
}

// ObserveHTTPDurationMs records a request latency in milliseconds.
func ObserveHTTPDurationMs(value float64) {
	httpDuration.Observe(clamp(value))
}

func clamp(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
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
	for _, c := range counters {
		writeCounter(&buf, c.name, c.help, c.value.Load())
	}
	writeHistogram(&buf, "scan_duration_ms", "Scan processing duration in milliseconds", scanDuration.Snapshot())
	writeHistogram(&buf, "http_request_duration_ms", "HTTP request duration in milliseconds", httpDuration.Snapshot())
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

// Observe counts value in the first bucket it fits; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
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

// SinceMs returns the milliseconds elapsed since start.
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
