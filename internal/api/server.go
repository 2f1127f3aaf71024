package api

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"julia-sweep/internal/engine"
	"julia-sweep/internal/events"
	"julia-sweep/internal/julia"
	"julia-sweep/internal/logger"
	"julia-sweep/internal/metrics"
	"julia-sweep/internal/render"
	"julia-sweep/internal/store"
	"julia-sweep/internal/sweep"
)

//go:embed static/*
var staticFiles embed.FS

// 単発フレームの制限
const (
	defaultFrameSize = 400
	maxFrameSize     = 2000
	frameWorkers     = 4
	defaultHistory   = 20
)

// History は履歴の保存と参照
type History interface {
	sweep.Recorder
	ListRuns(limit int) ([]*store.Run, error)
	ListFrames(runID string) ([]store.Frame, error)
}

// Server はAPIサーバー
type Server struct {
	addr       string
	registry   *prometheus.Registry
	collectors *metrics.Collectors
	bus        *events.Bus
	history    History
	outputDir  string

	mu         sync.RWMutex
	ctx        context.Context
	running    bool
	runner     *sweep.Runner
	config     sweep.Config
	cancel     context.CancelFunc
	lastResult *sweep.Result
	wsClients  map[*websocket.Conn]bool

	server *http.Server
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(addr string) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Server{
		addr:       addr,
		registry:   reg,
		collectors: metrics.NewCollectors(reg),
		bus:        events.NewBus(),
		ctx:        context.Background(),
		wsClients:  make(map[*websocket.Conn]bool),
	}
}

// SetHistory は履歴の保存先を設定する
func (s *Server) SetHistory(h History) {
	s.history = h
}

// SetOutputDir はAPIから開始したスイープのフレーム出力先を設定する
func (s *Server) SetOutputDir(dir string) {
	s.outputDir = dir
}

// EventBus はサーバーのイベントバスを返す
func (s *Server) EventBus() *events.Bus {
	return s.bus
}

// Collectors はサーバーのレジストリに登録されたコレクタを返す
func (s *Server) Collectors() *metrics.Collectors {
	return s.collectors
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/frame", s.handleFrame)
	mux.HandleFunc("/api/sweep/start", s.handleSweepStart)
	mux.HandleFunc("/api/sweep/stop", s.handleSweepStop)
	mux.HandleFunc("/api/presets", s.handlePresets)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// WebSocket
	mux.Handle("/ws", websocket.Handler(s.handleWebSocket))

	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to get static files: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	return mux, nil
}

// Start はサーバーを開始する
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// バックグラウンドでイベント配信
	go s.broadcastLoop(ctx, s.bus.Subscribe())

	logger.Info("api", "API Server starting on http://%s", s.addr)

	go func() {
		<-ctx.Done()
		s.stopSweep()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.bus.Close()
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StatusResponse はステータスレスポンス
type StatusResponse struct {
	Running   bool              `json:"running"`
	SweepName string            `json:"sweep_name,omitempty"`
	Frames    int               `json:"frames,omitempty"`
	Metrics   *metrics.Snapshot `json:"metrics,omitempty"`
	LastRunID string            `json:"last_run_id,omitempty"`
	LastError string            `json:"last_error,omitempty"`
	WSClients int               `json:"ws_clients"`
}

func (s *Server) status() StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := StatusResponse{
		Running:   s.running,
		WSClients: len(s.wsClients),
	}

	if s.config.Name != "" {
		resp.SweepName = s.config.Name
		resp.Frames = s.config.Frames
	}
	if s.runner != nil {
		resp.Metrics = s.runner.Metrics()
	}
	if s.lastResult != nil {
		resp.LastRunID = s.lastResult.RunID
		resp.LastError = s.lastResult.Error
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, s.status())
}

// handleFrame は定数 re+im·i のフレームを1枚計算してPNGで返す
// 領域は [-1,1]x[-1,1] で、width 分割の解像度で計算する
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	re, err := strconv.ParseFloat(q.Get("re"), 64)
	if err != nil {
		http.Error(w, "Invalid re", http.StatusBadRequest)
		return
	}
	im, err := strconv.ParseFloat(q.Get("im"), 64)
	if err != nil {
		http.Error(w, "Invalid im", http.StatusBadRequest)
		return
	}
	width, err := sizeParam(q.Get("width"))
	if err != nil {
		http.Error(w, "Invalid width", http.StatusBadRequest)
		return
	}
	height, err := sizeParam(q.Get("height"))
	if err != nil {
		http.Error(w, "Invalid height", http.StatusBadRequest)
		return
	}
	palette, err := render.ParsePalette(q.Get("palette"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	region := julia.Region{
		Min:        complex(-1, -1),
		Max:        complex(1, 1),
		Constant:   complex(re, im),
		Resolution: 2.0 / float64(width),
	}

	eng, err := engine.NewWithConfig(engine.Config{
		Region:     region,
		Workers:    frameWorkers,
		Collectors: s.collectors,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer eng.Close()

	points, _, err := eng.Calculate()
	if err != nil {
		logger.Error("api", "frame %s failed: %v", julia.FormatComplex(region.Constant), err)
		http.Error(w, "Frame calculation failed", http.StatusInternalServerError)
		return
	}

	img, err := render.Render(points, region, render.Options{
		Width:   width,
		Height:  height,
		Palette: palette,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Julia-Points", strconv.Itoa(len(points)))
	if err := render.Encode(w, img, render.FormatPNG); err != nil {
		logger.Error("api", "Failed to encode PNG: %v", err)
	}
}

// sizeParam は画像サイズのパラメータを解析する
func sizeParam(v string) (int, error) {
	if v == "" {
		return defaultFrameSize, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > maxFrameSize {
		return 0, fmt.Errorf("size out of range: %d", n)
	}
	return n, nil
}

// SweepRequest はスイープ開始リクエスト
type SweepRequest struct {
	Preset   string `json:"preset"`
	Frames   int    `json:"frames,omitempty"`
	Workers  int    `json:"workers,omitempty"`
	Interval string `json:"interval,omitempty"`
	Palette  string `json:"palette,omitempty"`
	Format   string `json:"format,omitempty"`
}

func (s *Server) handleSweepStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// プリセット取得
	config, ok := sweep.GetPreset(req.Preset)
	if !ok {
		config = sweep.QuickSweep()
	}

	// オーバーライド
	if req.Frames > 0 {
		config.Frames = req.Frames
	}
	if req.Workers > 0 {
		config.Workers = req.Workers
	}
	if req.Interval != "" {
		d, err := time.ParseDuration(req.Interval)
		if err != nil {
			http.Error(w, "Invalid interval", http.StatusBadRequest)
			return
		}
		config.FrameInterval = d
	}
	if req.Palette != "" {
		p, err := render.ParsePalette(req.Palette)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		config.Render.Palette = p
	}
	if req.Format != "" {
		f, err := render.ParseFormat(req.Format)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		config.Render.Format = f
	}
	if s.outputDir != "" {
		config.Render.OutputDir = s.outputDir
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		http.Error(w, "Sweep already running", http.StatusConflict)
		return
	}

	runner := sweep.New(config)
	runner.SetEventBus(s.bus)
	runner.SetCollectors(s.collectors)
	if s.history != nil {
		runner.SetRecorder(s.history)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.config = config
	s.runner = runner
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	// バックグラウンドで実行
	go func() {
		defer cancel()
		result, err := runner.Run(ctx)

		s.mu.Lock()
		s.running = false
		s.cancel = nil
		if result != nil {
			s.lastResult = result
		}
		s.mu.Unlock()

		if err != nil {
			logger.Error("api", "Sweep failed: %v", err)
		} else {
			logger.Info("api", "Sweep completed: %d frames", result.Frames)
		}

		s.broadcast(map[string]interface{}{
			"type":   "sweep_complete",
			"result": summarize(config.Name, result, err),
		})
	}()

	s.writeJSON(w, map[string]string{"status": "started", "sweep": config.Name})
}

// SweepSummary は完了したスイープの要約
type SweepSummary struct {
	Sweep        string  `json:"sweep"`
	RunID        string  `json:"run_id,omitempty"`
	Frames       int     `json:"frames"`
	EmptyFrames  int     `json:"empty_frames"`
	FilesWritten int     `json:"files_written"`
	FPS          float64 `json:"fps"`
	Interrupted  bool    `json:"interrupted"`
	LastConstant string  `json:"last_constant,omitempty"`
	Error        string  `json:"error,omitempty"`
}

func summarize(name string, result *sweep.Result, err error) SweepSummary {
	summary := SweepSummary{Sweep: name}
	if result != nil {
		summary.RunID = result.RunID
		summary.Frames = result.Frames
		summary.EmptyFrames = result.EmptyFrames
		summary.FilesWritten = result.FilesWritten
		summary.FPS = result.FPS
		summary.Interrupted = result.Interrupted
		if result.Frames > 0 {
			summary.LastConstant = julia.FormatComplex(result.LastConstant)
		}
	}
	if err != nil {
		summary.Error = err.Error()
	}
	return summary
}

func (s *Server) handleSweepStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.stopSweep() {
		http.Error(w, "No sweep running", http.StatusBadRequest)
		return
	}

	s.writeJSON(w, map[string]string{"status": "stop requested"})
}

// stopSweep は実行中のスイープをキャンセルする
func (s *Server) stopSweep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// IsRunning はスイープ実行中かどうかを返す
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// PresetInfo はプリセット情報
type PresetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Frames      int    `json:"frames"`
	Constant    string `json:"constant"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var presets []PresetInfo
	for _, name := range sweep.ListPresets() {
		cfg, _ := sweep.GetPreset(name)
		presets = append(presets, PresetInfo{
			Name:        cfg.Name,
			Description: cfg.Description,
			Frames:      cfg.Frames,
			Constant:    julia.FormatComplex(cfg.Region.Constant),
		})
	}

	s.writeJSON(w, presets)
}

// handleHistory は実行履歴を返す
// run が指定されればそのフレーム一覧を返す
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.history == nil {
		s.writeJSON(w, []*store.Run{})
		return
	}

	if id := r.URL.Query().Get("run"); id != "" {
		frames, err := s.history.ListFrames(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, frames)
		return
	}

	limit := defaultHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.history.ListRuns(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	s.writeJSON(w, runs)
}

// WebSocket handling
func (s *Server) handleWebSocket(ws *websocket.Conn) {
	s.mu.Lock()
	s.wsClients[ws] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsClients, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	// Keep connection alive
	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			break
		}
	}
}

func (s *Server) broadcast(data interface{}) {
	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.wsClients))
	for ws := range s.wsClients {
		clients = append(clients, ws)
	}
	s.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	for _, ws := range clients {
		_ = websocket.Message.Send(ws, string(jsonData))
	}
}

// broadcastLoop はバスのイベントと実行中のステータスをWebSocketに配信する
func (s *Server) broadcastLoop(ctx context.Context, ch <-chan events.Event) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(map[string]interface{}{
				"type":  "event",
				"event": e,
			})
		case <-ticker.C:
			if !s.IsRunning() {
				continue
			}
			s.broadcast(map[string]interface{}{
				"type":   "status",
				"status": s.status(),
			})
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("api", "Failed to encode JSON: %v", err)
	}
}
