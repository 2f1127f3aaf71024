package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"julia-sweep/internal/engine"
	"julia-sweep/internal/events"
	"julia-sweep/internal/julia"
	"julia-sweep/internal/logger"
	"julia-sweep/internal/metrics"
	"julia-sweep/internal/render"
	"julia-sweep/internal/store"
)

// maxPendingWrites はディスク書き込み待ちのフレーム数の上限
const maxPendingWrites = 2

// ErrAlreadyRunning は実行中の Runner を再度 Run した場合に返される
var ErrAlreadyRunning = errors.New("sweep is already running")

// RenderConfig は画像出力の設定
type RenderConfig struct {
	Width     int            // 0で格子と同じ
	Height    int            // 0で格子と同じ
	Format    render.Format  // png, bmp, tiff
	Palette   render.Palette // gray, wheel
	OutputDir string         // 空なら画像を書き出さない
}

// Config はスイープの設定
type Config struct {
	Name          string
	Description   string
	Workers       int           // エンジンのワーカー数
	Frames        int           // フレーム数
	FrameInterval time.Duration // フレーム間隔（0で待たない）

	Region julia.Region // Constant は最初のフレームの定数
	Step   complex128   // 1フレームごとの定数の増分

	Render RenderConfig
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return ClassicSweep()
}

// ConstantAt はフレーム frame の定数を返す
func (c Config) ConstantAt(frame int) complex128 {
	return c.Region.Constant + complex(float64(frame), 0)*c.Step
}

// Validate は設定を検証する
func (c Config) Validate() error {
	if c.Frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", c.Frames)
	}
	if c.FrameInterval < 0 {
		return fmt.Errorf("frame interval must be non-negative, got %v", c.FrameInterval)
	}
	if c.Render.Width < 0 || c.Render.Height < 0 {
		return fmt.Errorf("render size must be non-negative")
	}
	if _, err := render.ParseFormat(string(c.Render.Format)); err != nil {
		return err
	}
	if _, err := render.ParsePalette(string(c.Render.Palette)); err != nil {
		return err
	}
	return c.Region.Validate()
}

// Recorder はスイープの履歴を保存する
type Recorder interface {
	CreateRun(name string, workers int) (*store.Run, error)
	FinishRun(id string, frames int, runErr error) error
	SaveFrame(f store.Frame) error
}

// Result はスイープの実行結果
type Result struct {
	SweepName string
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Workers   int

	Frames      int
	EmptyFrames int
	TotalPoints uint64
	AvgLatency  time.Duration
	P99Latency  time.Duration
	FPS         float64

	FirstConstant complex128
	LastConstant  complex128

	FilesWritten int
	BytesWritten uint64

	Interrupted bool
	Error       string
}

// Runner はスイープを実行する
type Runner struct {
	config     Config
	eventBus   *events.Bus
	recorder   Recorder
	collectors *metrics.Collectors

	mu      sync.RWMutex
	running bool
	metrics *metrics.Metrics
}

// New は新しい Runner を作成する
func New(config Config) *Runner {
	return &Runner{
		config: config,
	}
}

// SetEventBus はイベントバスを設定する
func (r *Runner) SetEventBus(bus *events.Bus) {
	r.eventBus = bus
}

// SetRecorder は履歴の保存先を設定する
func (r *Runner) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// SetCollectors は Prometheus コレクタを設定する
func (r *Runner) SetCollectors(c *metrics.Collectors) {
	r.collectors = c
}

// Run はスイープを実行する
//
// ctx のキャンセルはフレームの間でのみ反映され、計算中のフレームは
// 最後まで計算される。エンジンの致命的なエラーや書き込みエラーで
// 中断した場合は、それまでの Result とエラーの両方を返す。
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.running = true
	r.metrics = metrics.New()
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	cfg := r.config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sweep config: %w", err)
	}

	eng, err := engine.NewWithConfig(engine.Config{
		Region:     cfg.Region,
		Workers:    cfg.Workers,
		Collectors: r.collectors,
	})
	if err != nil {
		return nil, fmt.Errorf("setup failed: %w", err)
	}
	defer eng.Close()

	eng.SetMetrics(r.metrics)
	eng.SetEventBus(r.eventBus)

	if cfg.Render.OutputDir != "" {
		if err := os.MkdirAll(cfg.Render.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	result := &Result{
		SweepName:     cfg.Name,
		StartTime:     time.Now(),
		Workers:       eng.Workers(),
		FirstConstant: cfg.ConstantAt(0),
	}

	if r.recorder != nil {
		run, err := r.recorder.CreateRun(cfg.Name, eng.Workers())
		if err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
		result.RunID = run.ID
	}

	logger.Info("sweep", "=== Sweep '%s' started (%d frames, %d workers) ===", cfg.Name, cfg.Frames, eng.Workers())
	r.eventBus.Publish(events.NewSweepStartedEvent(cfg.Name, cfg.Frames))

	frames, runErr := r.loop(ctx, eng, cfg, result)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Frames = frames
	r.collectResults(result)
	if runErr != nil {
		result.Error = runErr.Error()
	}

	if r.recorder != nil {
		if err := r.recorder.FinishRun(result.RunID, frames, runErr); err != nil {
			logger.Warn("sweep", "failed to finish run record: %v", err)
		}
	}

	r.eventBus.Publish(events.NewSweepCompletedEvent(cfg.Name, frames, runErr))
	logger.Info("sweep", "=== Sweep '%s' completed (%d frames) ===", cfg.Name, frames)

	return result, runErr
}

// loop はフレームを順に計算し、描画と書き込みを errgroup に渡す
// 計算したフレーム数を返す
func (r *Runner) loop(ctx context.Context, eng *engine.Engine, cfg Config, result *Result) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPendingWrites)

	var files atomic.Int64
	var written atomic.Uint64

	var ticker *time.Ticker
	if cfg.FrameInterval > 0 {
		ticker = time.NewTicker(cfg.FrameInterval)
		defer ticker.Stop()
	}

	frames := 0
	var loopErr error

frameLoop:
	for frame := 0; frame < cfg.Frames; frame++ {
		select {
		case <-gctx.Done():
			result.Interrupted = ctx.Err() != nil
			break frameLoop
		default:
		}

		constant := cfg.ConstantAt(frame)
		eng.SetConstant(constant)

		start := time.Now()
		points, ok, err := eng.Calculate()
		latency := time.Since(start)
		if err != nil {
			loopErr = fmt.Errorf("frame %d: %w", frame, err)
			break
		}
		frames++
		result.LastConstant = constant

		rec := store.Frame{
			RunID:    result.RunID,
			Index:    frame,
			Constant: constant,
			Points:   len(points),
			Empty:    !ok,
			Latency:  latency,
		}

		if !ok {
			result.EmptyFrames++
		} else if cfg.Render.OutputDir != "" {
			path := filepath.Join(cfg.Render.OutputDir, frameName(frame, cfg.Render.Format))
			rec.Path = path
			region := eng.Region()
			g.Go(func() error {
				n, err := writeFrame(path, points, region, cfg.Render)
				if err != nil {
					return fmt.Errorf("frame %d: %w", frame, err)
				}
				files.Add(1)
				written.Add(n)
				r.eventBus.Publish(events.NewFrameWrittenEvent(frame, path).WithSweep(cfg.Name))
				return nil
			})
		}

		if r.recorder != nil {
			if err := r.recorder.SaveFrame(rec); err != nil {
				logger.Warn("sweep", "failed to record frame %d: %v", frame, err)
			}
		}

		if ticker != nil && frame < cfg.Frames-1 {
			select {
			case <-gctx.Done():
			case <-ticker.C:
			}
		}
	}

	if err := g.Wait(); err != nil && loopErr == nil {
		loopErr = err
	}
	if loopErr == nil && ctx.Err() != nil {
		result.Interrupted = true
		logger.Warn("sweep", "sweep interrupted after %d frames", frames)
	}

	result.FilesWritten = int(files.Load())
	result.BytesWritten = written.Load()
	return frames, loopErr
}

// collectResults はメトリクスを結果に反映する
func (r *Runner) collectResults(result *Result) {
	snapshot := r.metrics.Snapshot()
	result.TotalPoints = snapshot.TotalPoints
	result.AvgLatency = snapshot.AverageLatency
	result.P99Latency = snapshot.P99Latency
	if secs := result.Duration.Seconds(); secs > 0 {
		result.FPS = float64(result.Frames) / secs
	}
}

func frameName(frame int, format render.Format) string {
	if format == "" {
		format = render.FormatPNG
	}
	return fmt.Sprintf("frame-%05d%s", frame, format.Extension())
}

// writeFrame は1フレームを描画してファイルに書き込み、書き込んだバイト数を返す
func writeFrame(path string, points []julia.Point, region julia.Region, rc RenderConfig) (uint64, error) {
	img, err := render.Render(points, region, render.Options{
		Width:   rc.Width,
		Height:  rc.Height,
		Palette: rc.Palette,
	})
	if err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	cw := &countingWriter{w: f}
	if err := render.Encode(cw, img, rc.Format); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}

// IsRunning は実行中かどうかを返す
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Metrics は実行中または直前のスイープのメトリクスを返す
func (r *Runner) Metrics() *metrics.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.metrics == nil {
		return nil
	}
	snapshot := r.metrics.Snapshot()
	return &snapshot
}

// Config は設定を返す
func (r *Runner) Config() Config {
	return r.config
}

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	p := message.NewPrinter(language.English)

	status := "completed"
	switch {
	case r.Error != "":
		status = "failed: " + r.Error
	case r.Interrupted:
		status = "interrupted"
	}

	run := r.RunID
	if run == "" {
		run = "-"
	}

	return p.Sprintf(`
================================================================================
                         SWEEP REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Run ID:         %s
  Start Time:     %s
  End Time:       %s
  Duration:       %v
  Workers:        %d
  Status:         %s

FRAMES
------
  Frames:           %d
  Empty Frames:     %d
  Escaped Points:   %d
  Avg Latency:      %v
  P99 Latency:      %v
  Frames/sec:       %.2f

CONSTANT
--------
  First:            %s
  Last:             %s

OUTPUT
------
  Files Written:    %d
  Bytes Written:    %s

================================================================================`,
		r.SweepName,
		run,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.Workers,
		status,
		r.Frames,
		r.EmptyFrames,
		r.TotalPoints,
		r.AvgLatency.Round(time.Microsecond),
		r.P99Latency.Round(time.Microsecond),
		r.FPS,
		julia.FormatComplex(r.FirstConstant),
		julia.FormatComplex(r.LastConstant),
		r.FilesWritten,
		humanize.Bytes(r.BytesWritten),
	)
}
