package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "julia"

// Frame outcomes used as the "outcome" label of FramesTotal.
const (
	OutcomePoints = "points"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

// Collectors holds the Prometheus collectors for the pool and the engine.
type Collectors struct {
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsPanicked  prometheus.Counter
	BusyWorkers   prometheus.Gauge
	JobLatency    prometheus.Histogram

	FramesTotal   *prometheus.CounterVec
	FrameLatency  prometheus.Histogram
	FramePoints   prometheus.Histogram
	PartitionRuns prometheus.Counter
}

// NewCollectors creates the collectors and registers them on reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs accepted by the worker pool",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs that returned normally",
		}),
		JobsPanicked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_panicked_total",
			Help:      "Total number of jobs that panicked",
		}),
		BusyWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "busy_workers",
			Help:      "Current number of workers executing a job",
		}),
		JobLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "job_latency_seconds",
			Help:      "Histogram of job execution latency",
			Buckets:   prometheus.DefBuckets,
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "frames_total",
			Help:      "Total number of calculated frames by outcome",
		}, []string{"outcome"}),
		FrameLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "frame_latency_seconds",
			Help:      "Histogram of frame calculation latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		FramePoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "frame_points",
			Help:      "Number of escaped points per frame",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
		PartitionRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "partitions_total",
			Help:      "Total number of partition sweeps executed",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			c.JobsSubmitted,
			c.JobsCompleted,
			c.JobsPanicked,
			c.BusyWorkers,
			c.JobLatency,
			c.FramesTotal,
			c.FrameLatency,
			c.FramePoints,
			c.PartitionRuns,
		)
	}
	return c
}
