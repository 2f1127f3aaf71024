package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"julia-sweep/internal/julia"
)

// ErrEmptyCanvas は領域に格子点がなく画像を作れない場合に返される
var ErrEmptyCanvas = errors.New("region has no samples to draw")

// Format は画像の出力形式
type Format string

const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// ParseFormat は文字列から出力形式を解析する
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatBMP, FormatTIFF:
		return f, nil
	case "tif":
		return FormatTIFF, nil
	case "":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unknown image format: %q", s)
	}
}

// Extension はファイル拡張子を返す
func (f Format) Extension() string {
	return "." + string(f)
}

// Options は描画の設定
type Options struct {
	Width   int // 出力幅（0で格子と同じ）
	Height  int // 出力高さ（0で格子と同じ）
	Palette Palette
}

// Render は発散点を黒背景の画像に描く
//
// 格子1点が1ピクセルになり、点 (x, y) は
// round((x-min.re)*cols/width), round((y-min.im)*rows/height) に置かれる。
// Options で別のサイズが指定された場合は最後に拡大縮小する。
func Render(points []julia.Point, region julia.Region, opts Options) (*image.RGBA, error) {
	cols := julia.Samples(region.Width(), region.Resolution)
	rows := julia.Samples(region.Height(), region.Resolution)
	if cols == 0 || rows == 0 {
		return nil, ErrEmptyCanvas
	}

	grid := image.NewRGBA(image.Rect(0, 0, cols, rows))
	draw.Draw(grid, grid.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	sx := float64(cols) / region.Width()
	sy := float64(rows) / region.Height()
	for _, p := range points {
		px := int(math.Round((p.X - real(region.Min)) * sx))
		py := int(math.Round((p.Y - imag(region.Min)) * sy))
		if px < 0 || px >= cols || py < 0 || py >= rows {
			continue
		}
		grid.SetRGBA(px, py, opts.Palette.Color(p.Iteration))
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = cols
	}
	if height <= 0 {
		height = rows
	}
	if width == cols && height == rows {
		return grid, nil
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), grid, grid.Bounds(), draw.Src, nil)
	return scaled, nil
}

// Encode は画像を指定形式で書き出す
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG, "":
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unknown image format: %q", format)
	}
}
