package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxLatencySamples = 1000

// Metrics はフレーム計算のメトリクスを収集する
type Metrics struct {
	totalFrames    atomic.Uint64
	emptyFrames    atomic.Uint64
	failedFrames   atomic.Uint64
	totalPoints    atomic.Uint64
	totalLatencyNs atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	lastResetTime     time.Time
	windowFrames      uint64
	latencies         []time.Duration
	maxLatencySamples int
}

// Config はメトリクスの設定
type Config struct {
	MaxLatencySamples int // P99 計算用に保持するサンプル数
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(Config{MaxLatencySamples: defaultMaxLatencySamples})
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	samples := config.MaxLatencySamples
	if samples <= 0 {
		samples = defaultMaxLatencySamples
	}
	now := time.Now()
	return &Metrics{
		startTime:         now,
		lastResetTime:     now,
		latencies:         make([]time.Duration, 0, samples),
		maxLatencySamples: samples,
	}
}

// RecordFrame は点を返したフレームを記録する
func (m *Metrics) RecordFrame(latency time.Duration, points int) {
	m.totalPoints.Add(uint64(points))
	m.record(latency)
}

// RecordEmpty は発散点がなかったフレームを記録する
func (m *Metrics) RecordEmpty(latency time.Duration) {
	m.emptyFrames.Add(1)
	m.record(latency)
}

// RecordFailure は失敗したフレームを記録する
func (m *Metrics) RecordFailure(latency time.Duration) {
	m.failedFrames.Add(1)
	m.totalFrames.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowFrames++
	m.mu.Unlock()
}

func (m *Metrics) record(latency time.Duration) {
	m.totalFrames.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowFrames++
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	}
	m.mu.Unlock()
}

// TotalFrames は総フレーム数を返す
func (m *Metrics) TotalFrames() uint64 {
	return m.totalFrames.Load()
}

// EmptyFrames は空フレーム数を返す
func (m *Metrics) EmptyFrames() uint64 {
	return m.emptyFrames.Load()
}

// FailedFrames は失敗フレーム数を返す
func (m *Metrics) FailedFrames() uint64 {
	return m.failedFrames.Load()
}

// TotalPoints は全フレームの発散点の合計を返す
func (m *Metrics) TotalPoints() uint64 {
	return m.totalPoints.Load()
}

// FPS は現在のウィンドウでのフレームレートを返す
func (m *Metrics) FPS() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.lastResetTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.windowFrames) / elapsed
}

// OverallFPS は開始からの平均フレームレートを返す
func (m *Metrics) OverallFPS() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.totalFrames.Load()) / elapsed
}

// AverageLatency は平均フレーム計算時間を返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.totalFrames.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// P99Latency はP99フレーム計算時間を返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Reset はウィンドウメトリクスをリセットする
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowFrames = 0
	m.lastResetTime = time.Now()
	m.latencies = m.latencies[:0]
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	TotalFrames    uint64        `json:"total_frames"`
	EmptyFrames    uint64        `json:"empty_frames"`
	FailedFrames   uint64        `json:"failed_frames"`
	TotalPoints    uint64        `json:"total_points"`
	FPS            float64       `json:"fps"`
	OverallFPS     float64       `json:"overall_fps"`
	AverageLatency time.Duration `json:"average_latency"`
	P99Latency     time.Duration `json:"p99_latency"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TotalFrames:    m.TotalFrames(),
		EmptyFrames:    m.EmptyFrames(),
		FailedFrames:   m.FailedFrames(),
		TotalPoints:    m.TotalPoints(),
		FPS:            m.FPS(),
		OverallFPS:     m.OverallFPS(),
		AverageLatency: m.AverageLatency(),
		P99Latency:     m.P99Latency(),
		Elapsed:        time.Since(m.startTime),
	}
}
