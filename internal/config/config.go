package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"julia-sweep/internal/render"
	"julia-sweep/internal/sweep"
)

// 環境変数名
const (
	EnvWorkers   = "JULIA_WORKERS"
	EnvFrames    = "JULIA_FRAMES"
	EnvOutputDir = "JULIA_OUTPUT_DIR"
	EnvHistory   = "JULIA_HISTORY"
	EnvLogLevel  = "JULIA_LOG_LEVEL"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Sweep SweepConfig `yaml:"sweep" json:"sweep"`

	// LogLevel は環境変数からのみ設定される
	LogLevel string `yaml:"-" json:"-"`
}

// SweepConfig はスイープ設定
type SweepConfig struct {
	Name          string  `yaml:"name" json:"name"`
	Description   string  `yaml:"description" json:"description"`
	Preset        string  `yaml:"preset" json:"preset"`
	Workers       int     `yaml:"workers" json:"workers"`
	Frames        int     `yaml:"frames" json:"frames"`
	FrameInterval string  `yaml:"frame_interval" json:"frame_interval"`
	Resolution    float64 `yaml:"resolution" json:"resolution"`

	Region   *RegionConfig  `yaml:"region" json:"region"`
	Constant *ComplexConfig `yaml:"constant" json:"constant"`
	Step     *ComplexConfig `yaml:"step" json:"step"`

	Render  RenderConfig  `yaml:"render" json:"render"`
	History HistoryConfig `yaml:"history" json:"history"`
}

// RegionConfig は複素平面上の矩形
type RegionConfig struct {
	MinRe float64 `yaml:"min_re" json:"min_re"`
	MinIm float64 `yaml:"min_im" json:"min_im"`
	MaxRe float64 `yaml:"max_re" json:"max_re"`
	MaxIm float64 `yaml:"max_im" json:"max_im"`
}

// ComplexConfig は複素数
type ComplexConfig struct {
	Re float64 `yaml:"re" json:"re"`
	Im float64 `yaml:"im" json:"im"`
}

// Complex は complex128 に変換する
func (c ComplexConfig) Complex() complex128 {
	return complex(c.Re, c.Im)
}

// RenderConfig は画像出力設定
type RenderConfig struct {
	Width     int    `yaml:"width" json:"width"`
	Height    int    `yaml:"height" json:"height"`
	Format    string `yaml:"format" json:"format"`
	Palette   string `yaml:"palette" json:"palette"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`
}

// HistoryConfig は履歴DBの設定
type HistoryConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// LoadDotEnv は .env ファイルを読み込む
// 既に設定されている環境変数は上書きしない。ファイルがなければ何もしない
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv は JULIA_* 環境変数で設定を上書きする
func (f *FileConfig) ApplyEnv() error {
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		f.Sweep.Workers = n
	}
	if v := os.Getenv(EnvFrames); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvFrames, err)
		}
		f.Sweep.Frames = n
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		f.Sweep.Render.OutputDir = v
	}
	if v := os.Getenv(EnvHistory); v != "" {
		f.Sweep.History.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		f.LogLevel = v
	}
	return nil
}

// ToSweepConfig はFileConfigをsweep.Configに変換する
func (f *FileConfig) ToSweepConfig() (sweep.Config, error) {
	sc := f.Sweep

	// デフォルト値の設定
	config := sweep.DefaultConfig()
	if sc.Preset != "" {
		preset, ok := sweep.GetPreset(sc.Preset)
		if !ok {
			return config, fmt.Errorf("unknown preset: %s", sc.Preset)
		}
		config = preset
	}

	if sc.Name != "" {
		config.Name = sc.Name
	}
	if sc.Description != "" {
		config.Description = sc.Description
	}
	if sc.Workers > 0 {
		config.Workers = sc.Workers
	}
	if sc.Frames > 0 {
		config.Frames = sc.Frames
	}
	if sc.FrameInterval != "" {
		d, err := time.ParseDuration(sc.FrameInterval)
		if err != nil {
			return config, fmt.Errorf("invalid frame interval: %w", err)
		}
		config.FrameInterval = d
	}

	// 領域
	if sc.Region != nil {
		config.Region.Min = complex(sc.Region.MinRe, sc.Region.MinIm)
		config.Region.Max = complex(sc.Region.MaxRe, sc.Region.MaxIm)
	}
	if sc.Resolution > 0 {
		config.Region.Resolution = sc.Resolution
	}
	if sc.Constant != nil {
		config.Region.Constant = sc.Constant.Complex()
	}
	if sc.Step != nil {
		config.Step = sc.Step.Complex()
	}

	// 描画
	if sc.Render.Width > 0 {
		config.Render.Width = sc.Render.Width
	}
	if sc.Render.Height > 0 {
		config.Render.Height = sc.Render.Height
	}
	if sc.Render.Format != "" {
		format, err := render.ParseFormat(sc.Render.Format)
		if err != nil {
			return config, err
		}
		config.Render.Format = format
	}
	if sc.Render.Palette != "" {
		palette, err := render.ParsePalette(sc.Render.Palette)
		if err != nil {
			return config, err
		}
		config.Render.Palette = palette
	}
	if sc.Render.OutputDir != "" {
		config.Render.OutputDir = sc.Render.OutputDir
	}

	return config, nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	sc := f.Sweep

	if sc.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}

	if sc.Frames < 0 {
		return fmt.Errorf("frames must be non-negative")
	}

	if sc.Resolution < 0 {
		return fmt.Errorf("resolution must be non-negative")
	}

	if r := sc.Region; r != nil {
		if r.MaxRe <= r.MinRe {
			return fmt.Errorf("region.max_re must be greater than region.min_re")
		}
		if r.MaxIm < r.MinIm {
			return fmt.Errorf("region.max_im must not be less than region.min_im")
		}
	}

	if sc.Render.Width < 0 || sc.Render.Height < 0 {
		return fmt.Errorf("render.width and render.height must be non-negative")
	}

	if sc.Preset != "" {
		if _, ok := sweep.GetPreset(sc.Preset); !ok {
			return fmt.Errorf("unknown preset: %s", sc.Preset)
		}
	}

	return nil
}
