package render

import (
	"fmt"
	"image/color"
	"strings"

	"julia-sweep/internal/julia"
)

// Palette は反復回数から色への写像
type Palette string

const (
	// PaletteGray は反復回数に比例した灰色（255/100 刻み）
	PaletteGray Palette = "gray"
	// PaletteWheel は 255*6 段階の色相環
	PaletteWheel Palette = "wheel"
)

// wheelDensity は色相環上で1反復あたりに進む段数
const wheelDensity = 15

var wheel = buildWheel()

// ParsePalette は文字列からパレットを解析する
func ParsePalette(s string) (Palette, error) {
	switch p := Palette(strings.ToLower(strings.TrimSpace(s))); p {
	case PaletteGray, PaletteWheel:
		return p, nil
	case "":
		return PaletteGray, nil
	default:
		return "", fmt.Errorf("unknown palette: %q", s)
	}
}

// Color は反復回数 iter の色を返す
func (p Palette) Color(iter int) color.RGBA {
	switch p {
	case PaletteWheel:
		return wheel[(iter*wheelDensity)%len(wheel)]
	default:
		v := uint8((255 / julia.MaxIterations) * iter)
		return color.RGBA{v, v, v, 255}
	}
}

// buildWheel は赤→黄→緑→シアン→青→マゼンタ→赤を 255 段ずつ補間する
func buildWheel() []color.RGBA {
	stops := []color.RGBA{
		{255, 0, 0, 255},
		{255, 255, 0, 255},
		{0, 255, 0, 255},
		{0, 255, 255, 255},
		{0, 0, 255, 255},
		{255, 0, 255, 255},
		{255, 0, 0, 255},
	}

	out := make([]color.RGBA, 0, 255*6)
	for s := 0; s < len(stops)-1; s++ {
		from, to := stops[s], stops[s+1]
		for i := 0; i < 255; i++ {
			out = append(out, color.RGBA{
				R: lerp(from.R, to.R, i),
				G: lerp(from.G, to.G, i),
				B: lerp(from.B, to.B, i),
				A: 255,
			})
		}
	}
	return out
}

func lerp(a, b uint8, i int) uint8 {
	return uint8(int(a) + (int(b)-int(a))*i/255)
}
