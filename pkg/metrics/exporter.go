package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/downfa11-org/segjournal/util"
)

func init() {
	prometheus.MustRegister(AppendsTotal, AppendBytesTotal, AppendLatency)
	prometheus.MustRegister(FlushTotal, SegmentRollsTotal, SegmentsGauge, RecoveryDiscardedTotal)
}

// StartMetricsServer serves the Prometheus exposition format on
// :port/metrics until the process exits or http.ListenAndServe errors.
func StartMetricsServer(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", port)
		util.Info("metrics exporter listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			util.Error("metrics exporter stopped: %v", err)
		}
	}()
}

// RecordAppend updates the append-path counters and histogram for one
// successful append of n payload bytes taking elapsedSeconds.
func RecordAppend(n int, elapsedSeconds float64) {
	AppendsTotal.Inc()
	AppendBytesTotal.Add(float64(n))
	AppendLatency.Observe(elapsedSeconds)
}

// RecordFlush increments the flush counter.
func RecordFlush() {
	FlushTotal.Inc()
}

// RecordSegmentRoll increments the segment-roll counter and sets the
// current segment count.
func RecordSegmentRoll(segmentCount int) {
	SegmentRollsTotal.Inc()
	SegmentsGauge.Set(float64(segmentCount))
}

// SetSegmentCount sets the current segment count without recording a roll
// (used after open, deleteAfter, deleteUntil and reset).
func SetSegmentCount(n int) {
	SegmentsGauge.Set(float64(n))
}

// RecordRecoveryDiscard adds n to the count of frames discarded while
// recovering a torn tail on open.
func RecordRecoveryDiscard(n int) {
	RecoveryDiscardedTotal.Add(float64(n))
}
