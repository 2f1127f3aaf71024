package worker

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"julia-sweep/internal/logger"
	"julia-sweep/internal/metrics"
)

var (
	// ErrPoolClosed は停止要求後に Execute された場合に返される
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrQueueFull はキューに空きがない場合に返される
	ErrQueueFull = errors.New("worker pool queue is full")
	// ErrNilJob は nil ジョブが渡された場合に返される
	ErrNilJob = errors.New("nil job")
)

// Job はワーカーが一度だけ実行するジョブを表す
type Job func()

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	NumWorkers  int // ワーカー数（0でCPU数）
	QueueFactor int // キューサイズ = NumWorkers * QueueFactor
}

// DefaultPoolConfig はデフォルト設定を返す
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers:  0,   // CPU数
		QueueFactor: 100, // デフォルト倍率
	}
}

// Pool は固定数のゴルーチンが1本の共有キューからジョブを取り出して実行する
type Pool struct {
	numWorkers int
	jobs       chan Job
	done       chan struct{}
	wg         sync.WaitGroup

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	collectors atomic.Pointer[metrics.Collectors]
}

// NewPool は新しいワーカープールを作成し、ワーカーを起動する
// numWorkers が 0 以下の場合は CPU 数を使用
func NewPool(numWorkers int) *Pool {
	config := DefaultPoolConfig()
	config.NumWorkers = numWorkers
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig は設定を指定してワーカープールを作成し、ワーカーを起動する
func NewPoolWithConfig(config PoolConfig) *Pool {
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	queueFactor := config.QueueFactor
	if queueFactor <= 0 {
		queueFactor = 100
	}

	p := &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numWorkers*queueFactor),
		done:       make(chan struct{}),
	}

	p.wg.Add(numWorkers)
	for i := range numWorkers {
		go p.worker(i)
	}

	logger.Debug("pool", "WorkerPool started with %d workers", numWorkers)
	return p
}

// SetCollectors は Prometheus コレクタを設定する
func (p *Pool) SetCollectors(c *metrics.Collectors) {
	p.collectors.Store(c)
}

// worker は個々のワーカーゴルーチン
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case job := <-p.jobs:
			// 停止要求と同時に取り出したジョブは実行しない
			select {
			case <-p.done:
				return
			default:
			}
			p.run(id, job)
		}
	}
}

// run はジョブを実行し、panic をワーカー内で回収する
func (p *Pool) run(id int, job Job) {
	c := p.collectors.Load()
	start := time.Now()
	if c != nil {
		c.BusyWorkers.Inc()
	}

	defer func() {
		if c != nil {
			c.BusyWorkers.Dec()
			c.JobLatency.Observe(time.Since(start).Seconds())
		}
		if r := recover(); r != nil {
			logger.Error(scope(id), "job panicked: %v", r)
			if c != nil {
				c.JobsPanicked.Inc()
			}
			return
		}
		if c != nil {
			c.JobsCompleted.Inc()
		}
	}()

	job()
}

// Execute はジョブをキューに入れて即座に戻る（完了は待たない）
func (p *Pool) Execute(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		if c := p.collectors.Load(); c != nil {
			c.JobsSubmitted.Inc()
		}
		return nil
	default:
		return ErrQueueFull
	}
}

// Close はワーカープールを停止する
// 以降の Execute は失敗し、実行中のジョブの完了を待って全ワーカーを join する。
// 未実行のジョブは破棄される。複数回呼んでも安全。
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.done)
		p.mu.Unlock()

		p.wg.Wait()

		if dropped := len(p.jobs); dropped > 0 {
			logger.Debug("pool", "dropped %d pending jobs", dropped)
		}
		logger.Debug("pool", "WorkerPool stopped")
	})
}

// NumWorkers はワーカー数を返す
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// QueueSize は現在のキューサイズを返す
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// IsRunning はジョブを受け付けているかを返す
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

func scope(id int) string {
	return fmt.Sprintf("worker-%d", id)
}
