package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the permuter harness
type Metrics struct {
	// Trace metrics
	TraceRecordsTotal  prometheus.Gauge
	EpochsTotal        prometheus.Gauge
	EpochOpsTotal      prometheus.Gauge
	OverlapEpochsTotal prometheus.Gauge

	// Enumeration metrics
	CrashStatesTotal     prometheus.CounterVec
	ExhaustedJobsTotal   prometheus.Counter
	GenerationDuration   prometheus.Histogram
	CrashStateWrites     prometheus.Histogram

	// System metrics
	MemoryUsageBytes prometheus.Gauge
	GoroutinesTotal  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(runID string) *Metrics {
	labels := prometheus.Labels{"run_id": runID}

	return &Metrics{
		TraceRecordsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "permuter",
			Subsystem:   "trace",
			Name:        "records_total",
			Help:        "Number of records in the loaded workload profile",
			ConstLabels: labels,
		}),
		EpochsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "permuter",
			Subsystem:   "trace",
			Name:        "epochs_total",
			Help:        "Number of epochs produced by segmentation",
			ConstLabels: labels,
		}),
		EpochOpsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "permuter",
			Subsystem:   "trace",
			Name:        "epoch_ops_total",
			Help:        "Number of epoch ops produced by segmentation",
			ConstLabels: labels,
		}),
		OverlapEpochsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "permuter",
			Subsystem:   "trace",
			Name:        "overlap_epochs_total",
			Help:        "Number of epochs containing overlapping writes",
			ConstLabels: labels,
		}),

		CrashStatesTotal: *promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "permuter",
			Subsystem:   "generator",
			Name:        "crash_states_total",
			Help:        "Total number of distinct crash states generated, by granularity",
			ConstLabels: labels,
		}, []string{"granularity"}),
		ExhaustedJobsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace:   "permuter",
			Subsystem:   "generator",
			Name:        "exhausted_jobs_total",
			Help:        "Number of jobs that stopped because the state space appeared exhausted",
			ConstLabels: labels,
		}),
		GenerationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "permuter",
			Subsystem:   "generator",
			Name:        "generation_duration_seconds",
			Help:        "Histogram of per-state generation durations",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.000001, 4, 12),
		}),
		CrashStateWrites: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "permuter",
			Subsystem:   "generator",
			Name:        "crash_state_writes",
			Help:        "Histogram of write counts per generated crash state",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 16),
		}),

		MemoryUsageBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "permuter",
			Subsystem:   "system",
			Name:        "memory_usage_bytes",
			Help:        "Current memory usage in bytes",
			ConstLabels: labels,
		}),
		GoroutinesTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace:   "permuter",
			Subsystem:   "system",
			Name:        "goroutines_total",
			Help:        "Current number of goroutines",
			ConstLabels: labels,
		}),
	}
}

// UpdateTraceStats records the outcome of segmentation
func (m *Metrics) UpdateTraceStats(records, epochs, epochOps, overlapEpochs int) {
	m.TraceRecordsTotal.Set(float64(records))
	m.EpochsTotal.Set(float64(epochs))
	m.EpochOpsTotal.Set(float64(epochOps))
	m.OverlapEpochsTotal.Set(float64(overlapEpochs))
}

// RecordCrashState records one generated crash state
func (m *Metrics) RecordCrashState(granularity string, duration float64, writes int) {
	m.CrashStatesTotal.WithLabelValues(granularity).Inc()
	m.GenerationDuration.Observe(duration)
	m.CrashStateWrites.Observe(float64(writes))
}

// RecordExhaustedJob records a job ending on the exhaustion signal
func (m *Metrics) RecordExhaustedJob() {
	m.ExhaustedJobsTotal.Inc()
}

// UpdateSystemStats updates system-level statistics
func (m *Metrics) UpdateSystemStats(memoryUsage int64, goroutines int) {
	m.MemoryUsageBytes.Set(float64(memoryUsage))
	m.GoroutinesTotal.Set(float64(goroutines))
}
