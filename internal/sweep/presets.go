package sweep

import (
	"time"

	"julia-sweep/internal/julia"
	"julia-sweep/internal/render"
)

// ClassicSweep は定数の実部を 0 から 0.001 ずつ動かすスイープを返す
// 虚部 0.4、領域 [-1,1]x[-1,1]、1000 分割
func ClassicSweep() Config {
	return Config{
		Name:        "classic",
		Description: "Real part of c slides from 0 by 0.001 per frame, imaginary part 0.4",
		Workers:     12,
		Frames:      300,
		Region: julia.Region{
			Min:        complex(-1, -1),
			Max:        complex(1, 1),
			Constant:   complex(0, 0.4),
			Resolution: 2.0 / 1000,
		},
		Step:   complex(0.001, 0),
		Render: RenderConfig{Format: render.FormatPNG, Palette: render.PaletteGray},
	}
}

// DendriteSweep は c = i 付近の樹状ジュリア集合を通るスイープを返す
func DendriteSweep() Config {
	return Config{
		Name:        "dendrite",
		Description: "Dendrite around c = i, drifting along the real axis",
		Workers:     12,
		Frames:      200,
		Region: julia.Region{
			Min:        complex(-1.5, -1.5),
			Max:        complex(1.5, 1.5),
			Constant:   complex(0, 1),
			Resolution: 3.0 / 1000,
		},
		Step:   complex(-0.0005, 0),
		Render: RenderConfig{Format: render.FormatPNG, Palette: render.PaletteWheel},
	}
}

// RabbitSweep はドゥアディのウサギから出発するスイープを返す
func RabbitSweep() Config {
	return Config{
		Name:        "rabbit",
		Description: "Douady rabbit, c moving diagonally",
		Workers:     12,
		Frames:      200,
		Region: julia.Region{
			Min:        complex(-1.5, -1.5),
			Max:        complex(1.5, 1.5),
			Constant:   complex(-0.123, 0.745),
			Resolution: 3.0 / 1000,
		},
		Step:   complex(0.0002, -0.0002),
		Render: RenderConfig{Format: render.FormatPNG, Palette: render.PaletteWheel},
	}
}

// SiegelSweep はジーゲル円板を持つ定数付近のスイープを返す
func SiegelSweep() Config {
	return Config{
		Name:          "siegel",
		Description:   "Siegel disk, slow drift with a fixed frame cadence",
		Workers:       12,
		Frames:        120,
		FrameInterval: 40 * time.Millisecond,
		Region: julia.Region{
			Min:        complex(-1.5, -1.2),
			Max:        complex(1.5, 1.2),
			Constant:   complex(-0.390540870218, -0.586787907347),
			Resolution: 3.0 / 1000,
		},
		Step:   complex(0.0001, 0.0001),
		Render: RenderConfig{Format: render.FormatPNG, Palette: render.PaletteGray},
	}
}

// QuickSweep は動作確認用の短いスイープを返す
func QuickSweep() Config {
	return Config{
		Name:        "quick",
		Description: "Quick coarse sweep for verification",
		Workers:     4,
		Frames:      5,
		Region: julia.Region{
			Min:        complex(-1, -1),
			Max:        complex(1, 1),
			Constant:   complex(-1, 0.1),
			Resolution: 0.02,
		},
		Step:   complex(0.01, 0),
		Render: RenderConfig{Format: render.FormatPNG, Palette: render.PaletteGray},
	}
}

var presets = map[string]func() Config{
	"classic":  ClassicSweep,
	"dendrite": DendriteSweep,
	"rabbit":   RabbitSweep,
	"siegel":   SiegelSweep,
	"quick":    QuickSweep,
}

// GetPreset は名前からプリセットを取得する
func GetPreset(name string) (Config, bool) {
	if fn, ok := presets[name]; ok {
		return fn(), true
	}
	return Config{}, false
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	return []string{"classic", "dendrite", "rabbit", "siegel", "quick"}
}
