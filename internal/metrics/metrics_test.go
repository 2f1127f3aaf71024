package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	m := New()

	if m.TotalFrames() != 0 {
		t.Errorf("expected 0 total frames, got %d", m.TotalFrames())
	}
	if m.TotalPoints() != 0 {
		t.Errorf("expected 0 points, got %d", m.TotalPoints())
	}
}

func TestMetricsRecordFrame(t *testing.T) {
	m := New()

	m.RecordFrame(10*time.Millisecond, 100)
	m.RecordFrame(20*time.Millisecond, 50)
	m.RecordEmpty(30 * time.Millisecond)

	if m.TotalFrames() != 3 {
		t.Errorf("expected 3 total frames, got %d", m.TotalFrames())
	}
	if m.EmptyFrames() != 1 {
		t.Errorf("expected 1 empty frame, got %d", m.EmptyFrames())
	}
	if m.TotalPoints() != 150 {
		t.Errorf("expected 150 points, got %d", m.TotalPoints())
	}
	if m.FailedFrames() != 0 {
		t.Errorf("expected 0 failed frames, got %d", m.FailedFrames())
	}
}

func TestMetricsRecordFailure(t *testing.T) {
	m := New()

	m.RecordFailure(10 * time.Millisecond)
	m.RecordFrame(20*time.Millisecond, 1)

	if m.TotalFrames() != 2 {
		t.Errorf("expected 2 total frames, got %d", m.TotalFrames())
	}
	if m.FailedFrames() != 1 {
		t.Errorf("expected 1 failed frame, got %d", m.FailedFrames())
	}
}

func TestMetricsAverageLatency(t *testing.T) {
	m := New()

	m.RecordFrame(10*time.Millisecond, 1)
	m.RecordFrame(20*time.Millisecond, 1)
	m.RecordEmpty(30 * time.Millisecond)

	if avg := m.AverageLatency(); avg != 20*time.Millisecond {
		t.Errorf("expected average latency 20ms, got %v", avg)
	}
}

func TestMetricsP99Latency(t *testing.T) {
	m := New()

	for i := 1; i <= 100; i++ {
		m.RecordFrame(time.Duration(i)*time.Millisecond, 1)
	}

	if p99 := m.P99Latency(); p99 != 100*time.Millisecond {
		t.Errorf("expected P99 100ms, got %v", p99)
	}
}

func TestMetricsEmpty(t *testing.T) {
	m := New()

	if m.AverageLatency() != 0 {
		t.Error("expected zero average latency")
	}
	if m.P99Latency() != 0 {
		t.Error("expected zero P99 latency")
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewWithConfig(Config{MaxLatencySamples: 2})

	m.RecordFrame(10*time.Millisecond, 1)
	m.RecordFrame(20*time.Millisecond, 1)
	m.RecordFrame(90*time.Millisecond, 1)

	if p99 := m.P99Latency(); p99 != 20*time.Millisecond {
		t.Errorf("expected sample cap to keep P99 at 20ms, got %v", p99)
	}

	m.Reset()

	if m.P99Latency() != 0 {
		t.Error("expected latency samples to be cleared")
	}
	if m.TotalFrames() != 3 {
		t.Errorf("reset must keep totals, got %d", m.TotalFrames())
	}
}

func TestMetricsConcurrentAccess(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				m.RecordFrame(time.Millisecond, 3)
				_ = m.Snapshot()
			}
		}()
	}
	wg.Wait()

	if m.TotalFrames() != 1000 {
		t.Errorf("expected 1000 frames, got %d", m.TotalFrames())
	}
	if m.TotalPoints() != 3000 {
		t.Errorf("expected 3000 points, got %d", m.TotalPoints())
	}
}

func TestSnapshot(t *testing.T) {
	m := New()
	m.RecordFrame(5*time.Millisecond, 7)

	snap := m.Snapshot()
	if snap.TotalFrames != 1 || snap.TotalPoints != 7 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.AverageLatency != 5*time.Millisecond {
		t.Errorf("expected 5ms average, got %v", snap.AverageLatency)
	}
}

func TestNewCollectorsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	c.JobsSubmitted.Inc()
	c.FramesTotal.WithLabelValues(OutcomeEmpty).Inc()

	if got := testutil.ToFloat64(c.JobsSubmitted); got != 1 {
		t.Errorf("expected 1 submitted job, got %v", got)
	}
	if got := testutil.ToFloat64(c.FramesTotal.WithLabelValues(OutcomeEmpty)); got != 1 {
		t.Errorf("expected 1 empty frame, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected registered metric families")
	}
}

func TestNewCollectorsNilRegistry(t *testing.T) {
	c := NewCollectors(nil)
	c.BusyWorkers.Inc()
	if got := testutil.ToFloat64(c.BusyWorkers); got != 1 {
		t.Errorf("expected busy workers 1, got %v", got)
	}
}
