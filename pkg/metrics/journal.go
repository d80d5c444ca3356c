package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AppendsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_appends_total",
		Help: "Total number of records appended to the journal",
	})

	AppendBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_append_bytes_total",
		Help: "Total number of payload bytes appended to the journal",
	})

	AppendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "journal_append_latency_seconds",
		Help:    "Histogram of append call latency",
		Buckets: prometheus.DefBuckets,
	})

	FlushTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_flush_total",
		Help: "Total number of successful flush calls",
	})

	SegmentRollsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_segment_rolls_total",
		Help: "Total number of times the active segment was sealed and rolled over",
	})

	SegmentsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "journal_segments",
		Help: "Current number of segments in the journal",
	})

	RecoveryDiscardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_recovery_discarded_total",
		Help: "Total number of frames discarded by the recovery scan on open",
	})
)
