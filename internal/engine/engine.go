package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"julia-sweep/internal/events"
	"julia-sweep/internal/julia"
	"julia-sweep/internal/logger"
	"julia-sweep/internal/metrics"
	"julia-sweep/internal/worker"
)

// DefaultWorkers は既定のワーカー数（= 1フレームあたりの帯の数）
const DefaultWorkers = 12

var (
	// ErrEngineClosed は Close 後に Calculate された場合に返される
	ErrEngineClosed = errors.New("engine is closed")
	// ErrResultsClosed は結果チャネルが閉じられていた場合に返される
	ErrResultsClosed = errors.New("result channel closed")
	// ErrPartitionFailed は帯の計算が失敗した場合に返される
	ErrPartitionFailed = errors.New("partition failed")
)

// Config はエンジンの設定
type Config struct {
	Region     julia.Region
	Workers    int                 // ワーカー数（0以下でCPU数）
	Collectors *metrics.Collectors // 省略可
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Region: julia.Region{
			Min:        complex(-1, -1),
			Max:        complex(1, 1),
			Constant:   complex(-1, 0.1),
			Resolution: 2.0 / 1000,
		},
		Workers: DefaultWorkers,
	}
}

type task struct {
	index  int
	region julia.Region
}

type result struct {
	index  int
	points []julia.Point
	err    error
}

// Engine は1フレームの評価を帯に分割してワーカープールで並列に計算する
//
// Calculate を呼ぶのは単一のゴルーチンであること。
type Engine struct {
	region  julia.Region
	workers int

	pool    *worker.Pool
	tasks   chan task
	results chan result

	sweepFn    func(julia.Region) []julia.Point
	collectors *metrics.Collectors
	metrics    *metrics.Metrics
	eventBus   *events.Bus

	frame     int
	closed    atomic.Bool
	closeOnce sync.Once
}

// New はデフォルトのワーカー数でエンジンを作成する
func New(lower, upper, constant complex128, resolution float64) (*Engine, error) {
	config := DefaultConfig()
	config.Region = julia.Region{
		Min:        lower,
		Max:        upper,
		Constant:   constant,
		Resolution: resolution,
	}
	return NewWithConfig(config)
}

// NewWithConfig は設定を指定してエンジンを作成する
// ワーカーごとに帯を処理するループを1本ずつプール上で起動する
func NewWithConfig(config Config) (*Engine, error) {
	if err := config.Region.Validate(); err != nil {
		return nil, err
	}

	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	e := &Engine{
		region:     config.Region,
		workers:    workers,
		pool:       worker.NewPoolWithConfig(worker.PoolConfig{NumWorkers: workers, QueueFactor: 1}),
		tasks:      make(chan task, workers),
		results:    make(chan result, workers),
		sweepFn:    julia.Sweep,
		collectors: config.Collectors,
	}
	if config.Collectors != nil {
		e.pool.SetCollectors(config.Collectors)
	}

	for i := range workers {
		if err := e.pool.Execute(e.serve); err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to start partition loop %d: %w", i, err)
		}
	}

	logger.Debug("engine", "Engine started with %d workers", workers)
	return e, nil
}

// SetMetrics はフレームメトリクスを設定する
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// serve はタスクチャネルが閉じられるまで帯を計算し続ける
func (e *Engine) serve() {
	for t := range e.tasks {
		e.results <- e.sweep(t)
	}
}

// sweep は1本の帯を計算する。panic は結果のエラーとして返す
func (e *Engine) sweep(t task) (r result) {
	r.index = t.index
	defer func() {
		if p := recover(); p != nil {
			r.points = nil
			r.err = fmt.Errorf("%w: strip %d: %v", ErrPartitionFailed, t.index, p)
		}
	}()

	r.points = e.sweepFn(t.region)
	if e.collectors != nil {
		e.collectors.PartitionRuns.Inc()
	}
	return r
}

// Calculate は現在の領域を評価し、発散した点をまとめて返す
//
// 全ての帯の計算が終わるまでブロックする。結果の順序は帯の完了順で、
// 保証されない。発散点が1つもなければ (nil, false, nil) を返す。
// エラーはこのエンジンにとって致命的であり、部分的な結果は返さない。
func (e *Engine) Calculate() ([]julia.Point, bool, error) {
	if e.closed.Load() {
		return nil, false, ErrEngineClosed
	}

	region := e.region
	if err := region.Validate(); err != nil {
		return nil, false, err
	}

	frame := e.frame
	e.frame++
	start := time.Now()

	parts := julia.Partition(region, e.workers)
	for i, p := range parts {
		e.tasks <- task{index: i, region: p}
	}

	var points []julia.Point
	var failure error
	for range parts {
		r, ok := <-e.results
		if !ok {
			failure = ErrResultsClosed
			break
		}
		if r.err != nil {
			if failure == nil {
				failure = r.err
			}
			continue
		}
		points = append(points, r.points...)
	}

	latency := time.Since(start)
	constant := julia.FormatComplex(region.Constant)

	if failure != nil {
		logger.Error("engine", "frame %d (c=%s) failed: %v", frame, constant, failure)
		e.observe(metrics.OutcomeFailed, latency, 0)
		if e.metrics != nil {
			e.metrics.RecordFailure(latency)
		}
		e.eventBus.Publish(events.NewEngineFailedEvent(frame, failure))
		return nil, false, failure
	}

	if len(points) == 0 {
		logger.Debug("engine", "frame %d (c=%s): no escaped points", frame, constant)
		e.observe(metrics.OutcomeEmpty, latency, 0)
		if e.metrics != nil {
			e.metrics.RecordEmpty(latency)
		}
		e.eventBus.Publish(events.NewFrameEmptyEvent(frame, constant))
		return nil, false, nil
	}

	logger.Debug("engine", "frame %d (c=%s): %d points in %v", frame, constant, len(points), latency)
	e.observe(metrics.OutcomePoints, latency, len(points))
	if e.metrics != nil {
		e.metrics.RecordFrame(latency, len(points))
	}
	e.eventBus.Publish(events.NewFrameCalculatedEvent(frame, constant, len(points), latency))
	return points, true, nil
}

func (e *Engine) observe(outcome string, latency time.Duration, points int) {
	if e.collectors == nil {
		return
	}
	e.collectors.FramesTotal.WithLabelValues(outcome).Inc()
	e.collectors.FrameLatency.Observe(latency.Seconds())
	if outcome == metrics.OutcomePoints {
		e.collectors.FramePoints.Observe(float64(points))
	}
}

// SetMin は領域の下限を設定する（次の Calculate から有効）
func (e *Engine) SetMin(lower complex128) {
	e.region.Min = lower
}

// SetMax は領域の上限を設定する（次の Calculate から有効）
func (e *Engine) SetMax(upper complex128) {
	e.region.Max = upper
}

// SetConstant は漸化式の定数を設定する（次の Calculate から有効）
func (e *Engine) SetConstant(constant complex128) {
	e.region.Constant = constant
}

// SetResolution は格子の間隔を設定する（次の Calculate から有効）
func (e *Engine) SetResolution(resolution float64) {
	e.region.Resolution = resolution
}

// Region は現在の領域のコピーを返す
func (e *Engine) Region() julia.Region {
	return e.region
}

// Workers はワーカー数を返す
func (e *Engine) Workers() int {
	return e.workers
}

// Close はタスクチャネルを閉じ、全ワーカーを join してから結果チャネルを閉じる
// 複数回呼んでも安全。Calculate と並行に呼んではならない。
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.tasks)
		e.pool.Close()
		close(e.results)
		logger.Debug("engine", "Engine stopped")
	})
}
