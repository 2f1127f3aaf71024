// Package metrics provides frame metrics collection and reporting.
//
// Metrics collects statistics about frame calculation latency, empty and
// failed frames, escaped point totals and throughput (FPS). It is thread-safe.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	start := time.Now()
//	points, ok, err := eng.Calculate()
//	switch {
//	case err != nil:
//	    m.RecordFailure(time.Since(start))
//	case !ok:
//	    m.RecordEmpty(time.Since(start))
//	default:
//	    m.RecordFrame(time.Since(start), len(points))
//	}
//
//	snap := m.Snapshot()
//
// # Prometheus
//
// Collectors exposes the same signals, plus worker pool job counters, to a
// Prometheus registry:
//
//	reg := prometheus.NewRegistry()
//	c := metrics.NewCollectors(reg)
//	pool.SetCollectors(c)
//
// # Thread Safety
//
// Counters are atomic and the latency window is guarded by a mutex.
package metrics
