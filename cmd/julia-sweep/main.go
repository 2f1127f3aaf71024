// Package main is the entry point for julia-sweep.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"julia-sweep/internal/api"
	"julia-sweep/internal/config"
	"julia-sweep/internal/logger"
	"julia-sweep/internal/render"
	"julia-sweep/internal/store"
	"julia-sweep/internal/sweep"
)

var (
	version = "dev"
)

// options はコマンドラインで指定された値
type options struct {
	configFile string
	presetName string
	frames     int
	workers    int
	resolution float64
	outputDir  string
	format     string
	palette    string
	history    string
	logLevel   string
}

func main() {
	var opts options

	// フラグ定義
	flag.StringVar(&opts.configFile, "config", "", "設定ファイルパス (YAML/JSON)")
	flag.StringVar(&opts.presetName, "preset", "", "プリセット名 (classic, dendrite, rabbit, siegel, quick)")
	flag.IntVar(&opts.frames, "frames", 0, "フレーム数")
	flag.IntVar(&opts.workers, "workers", 0, "エンジンのワーカー数")
	flag.Float64Var(&opts.resolution, "resolution", 0, "格子の間隔")
	flag.StringVar(&opts.outputDir, "out", "", "フレーム画像の出力ディレクトリ")
	flag.StringVar(&opts.format, "format", "", "画像形式 (png, bmp, tiff)")
	flag.StringVar(&opts.palette, "palette", "", "パレット (gray, wheel)")
	flag.StringVar(&opts.history, "history", "", "履歴DB (SQLite) のパス")
	flag.StringVar(&opts.logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")
	var (
		listPresets = flag.Bool("list-presets", false, "利用可能なプリセットを表示")
		showVersion = flag.Bool("version", false, "バージョンを表示")
		serverMode  = flag.Bool("server", false, "Web UI サーバーモードで起動")
		serverAddr  = flag.String("addr", ":8080", "サーバーアドレス (例: :8080, 0.0.0.0:3000)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `julia-sweep - Parallel Julia Set Sweeper

Usage:
  julia-sweep [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment:
  JULIA_WORKERS, JULIA_FRAMES, JULIA_OUTPUT_DIR, JULIA_HISTORY, JULIA_LOG_LEVEL
  (.env in the working directory is loaded first)

Examples:
  # プリセットを実行してPNGを書き出す
  julia-sweep --preset quick --out frames

  # 設定ファイルから実行
  julia-sweep --config sweep.yaml

  # フラグでカスタマイズ
  julia-sweep --preset rabbit --frames 50 --workers 8 --palette wheel --out frames

  # 履歴を残す
  julia-sweep --preset classic --history history.db

  # Web UIサーバーモードで起動
  julia-sweep --server --addr :3000
`)
	}

	flag.Parse()

	// バージョン表示
	if *showVersion {
		fmt.Printf("julia-sweep version %s\n", version)
		return
	}

	// プリセット一覧表示
	if *listPresets {
		printPresets()
		return
	}

	if err := config.LoadDotEnv(); err != nil {
		logger.Error("main", "設定エラー: %v", err)
		os.Exit(1)
	}

	// スイープ設定の決定
	sweepConfig, fileConfig, err := buildSweepConfig(opts)
	if err != nil {
		logger.Error("main", "設定エラー: %v", err)
		os.Exit(1)
	}

	if err := setupLogger(fileConfig.LogLevel); err != nil {
		logger.Error("main", "設定エラー: %v", err)
		os.Exit(1)
	}

	var history *store.SQLiteStore
	if path := fileConfig.Sweep.History.Path; path != "" {
		history, err = store.NewSQLite(path)
		if err != nil {
			logger.Error("main", "履歴DBエラー: %v", err)
			os.Exit(1)
		}
		defer history.Close()
	}

	// Web UIサーバーモード
	if *serverMode {
		if err := runServer(*serverAddr, sweepConfig.Render.OutputDir, history); err != nil {
			logger.Error("main", "サーバーエラー: %v", err)
			os.Exit(1)
		}
		return
	}

	// スイープ実行
	if err := runSweep(sweepConfig, history); err != nil {
		logger.Error("main", "スイープ実行エラー: %v", err)
		if history != nil {
			history.Close()
		}
		os.Exit(1)
	}
}

// buildSweepConfig はスイープ設定を構築する
// 優先順位は フラグ > 環境変数 > 設定ファイル > プリセット
func buildSweepConfig(opts options) (sweep.Config, *config.FileConfig, error) {
	var cfg sweep.Config
	fileConfig := &config.FileConfig{}

	// 1. 設定ファイルから読み込み
	if opts.configFile != "" {
		fc, err := config.LoadFile(opts.configFile)
		if err != nil {
			return cfg, nil, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
		}
		fileConfig = fc
	}

	// 2. プリセット
	if opts.presetName != "" {
		if _, ok := sweep.GetPreset(opts.presetName); !ok {
			return cfg, nil, fmt.Errorf("不明なプリセット: %s (利用可能: %v)", opts.presetName, sweep.ListPresets())
		}
		fileConfig.Sweep.Preset = opts.presetName
	}

	// 3. 環境変数
	if err := fileConfig.ApplyEnv(); err != nil {
		return cfg, nil, err
	}

	// 4. フラグでオーバーライド
	if opts.frames > 0 {
		fileConfig.Sweep.Frames = opts.frames
	}
	if opts.workers > 0 {
		fileConfig.Sweep.Workers = opts.workers
	}
	if opts.resolution > 0 {
		fileConfig.Sweep.Resolution = opts.resolution
	}
	if opts.outputDir != "" {
		fileConfig.Sweep.Render.OutputDir = opts.outputDir
	}
	if opts.format != "" {
		fileConfig.Sweep.Render.Format = opts.format
	}
	if opts.palette != "" {
		fileConfig.Sweep.Render.Palette = opts.palette
	}
	if opts.history != "" {
		fileConfig.Sweep.History.Path = opts.history
	}
	if opts.logLevel != "" {
		fileConfig.LogLevel = opts.logLevel
	}

	if err := fileConfig.Validate(); err != nil {
		return cfg, nil, fmt.Errorf("設定検証エラー: %w", err)
	}
	cfg, err := fileConfig.ToSweepConfig()
	if err != nil {
		return cfg, nil, fmt.Errorf("設定変換エラー: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, fmt.Errorf("設定検証エラー: %w", err)
	}

	return cfg, fileConfig, nil
}

// setupLogger はログレベルを設定する
func setupLogger(level string) error {
	if level == "" {
		return nil
	}
	l, err := logger.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.Default.SetLevel(l)
	return nil
}

// runSweep はスイープを実行する
func runSweep(cfg sweep.Config, history *store.SQLiteStore) error {
	out := cfg.Render.OutputDir
	if out == "" {
		out = "(none)"
	}
	fmt.Println("julia-sweep - Parallel Julia Set Sweeper")
	fmt.Println("========================================")
	fmt.Printf("Sweep: %s\n", cfg.Name)
	fmt.Printf("Frames: %d, Workers: %d\n", cfg.Frames, cfg.Workers)
	fmt.Printf("Region: %v .. %v, resolution %g\n", cfg.Region.Min, cfg.Region.Max, cfg.Region.Resolution)
	fmt.Printf("Output: %s (%s, %s)\n", out, formatOrDefault(cfg.Render.Format), cfg.Render.Palette)
	fmt.Println("========================================")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			fmt.Println("\n中断シグナルを受信、現在のフレームの完了後に終了します...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// スイープ実行
	runner := sweep.New(cfg)
	if history != nil {
		runner.SetRecorder(history)
	}
	result, err := runner.Run(ctx)
	if result != nil {
		// レポート出力
		fmt.Println(result.Report())
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func formatOrDefault(f render.Format) render.Format {
	if f == "" {
		return render.FormatPNG
	}
	return f
}

// printPresets は利用可能なプリセットを表示する
func printPresets() {
	fmt.Println("利用可能なプリセット:")
	fmt.Println()

	for _, name := range sweep.ListPresets() {
		p, _ := sweep.GetPreset(name)
		fmt.Printf("  %-10s %4d frames  %s\n", p.Name, p.Frames, p.Description)
	}

	fmt.Println()
	fmt.Println("使用例: julia-sweep --preset quick --out frames")
}

// runServer はWeb UIサーバーを起動する
func runServer(addr, outputDir string, history *store.SQLiteStore) error {
	fmt.Println("julia-sweep - Web UI Server")
	fmt.Println("===========================")
	fmt.Printf("Starting server on http://%s\n", addr)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n中断シグナルを受信、サーバーを終了中...")
		cancel()
	}()

	server := api.NewServer(addr)
	server.SetOutputDir(outputDir)
	if history != nil {
		server.SetHistory(history)
	}
	return server.Start(ctx)
}
