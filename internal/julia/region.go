package julia

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidRegion は評価できない領域を表す
var ErrInvalidRegion = errors.New("invalid region")

// samplingEpsilon は width/resolution の丸め誤差で列が欠けるのを防ぐ
const samplingEpsilon = 1e-9

// Region は複素平面上の軸平行な矩形と、その評価パラメータ
type Region struct {
	Min        complex128
	Max        complex128
	Constant   complex128
	Resolution float64 // 格子の間隔
}

// Point は発散した1点の座標と発散までの反復回数
type Point struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Iteration int     `json:"iteration"`
}

// Validate は領域が評価可能かを検証する
func (r Region) Validate() error {
	for _, v := range []float64{real(r.Min), imag(r.Min), real(r.Max), imag(r.Max), r.Resolution} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrInvalidRegion)
		}
	}
	if real(r.Max) <= real(r.Min) {
		return fmt.Errorf("%w: max.re (%g) must be greater than min.re (%g)",
			ErrInvalidRegion, real(r.Max), real(r.Min))
	}
	if r.Resolution <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %g", ErrInvalidRegion, r.Resolution)
	}
	return nil
}

// Width は実軸方向の幅を返す
func (r Region) Width() float64 {
	return real(r.Max) - real(r.Min)
}

// Height は虚軸方向の高さを返す
func (r Region) Height() float64 {
	return imag(r.Max) - imag(r.Min)
}

// Samples は幅 width を間隔 resolution で刻んだときの格子点数を返す
func Samples(width, resolution float64) int {
	if width <= 0 || resolution <= 0 {
		return 0
	}
	return int(math.Floor(width/resolution + samplingEpsilon))
}

// Partition は領域を n 本の縦帯に分割する
//
// 帯 i の実軸範囲は [min + i*res*steps, min + (i+1)*res*steps] で、
// steps = ceil(width / (n*res))。上端は元の max.re で打ち切るため、
// 最後の帯の上端は常に max.re と一致する。虚軸範囲は全帯で現在の領域と同じ。
func Partition(r Region, n int) []Region {
	if n <= 0 {
		return nil
	}

	steps := math.Ceil(r.Width() / (float64(n) * r.Resolution))
	stripWidth := r.Resolution * steps
	maxRe := real(r.Max)

	parts := make([]Region, n)
	for i := range n {
		lo := math.Min(real(r.Min)+float64(i)*stripWidth, maxRe)
		hi := math.Min(real(r.Min)+float64(i+1)*stripWidth, maxRe)
		if i == n-1 {
			hi = maxRe
		}
		parts[i] = Region{
			Min:        complex(lo, imag(r.Min)),
			Max:        complex(hi, imag(r.Max)),
			Constant:   r.Constant,
			Resolution: r.Resolution,
		}
	}
	return parts
}

// FormatComplex は複素数を "a+bi" 形式で整形する
func FormatComplex(c complex128) string {
	re := strconv.FormatFloat(real(c), 'g', -1, 64)
	im := strconv.FormatFloat(imag(c), 'g', -1, 64)
	if imag(c) >= 0 {
		return re + "+" + im + "i"
	}
	return re + im + "i"
}
