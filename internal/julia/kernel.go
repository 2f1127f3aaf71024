package julia

import "math/cmplx"

const (
	// MaxIterations は1点あたりの反復回数の上限
	MaxIterations = 100
	// EscapeRadius はこの半径を超えた軌道を発散とみなす
	EscapeRadius = 2.0
)

// Classify は z から z ← z*z + c を反復し、|z| が EscapeRadius を超えた反復回数を返す
// 上限まで発散しなければ (0, false) を返す（点は集合に含まれる）
func Classify(z, c complex128) (int, bool) {
	for iter := 0; iter < MaxIterations; iter++ {
		if cmplx.Abs(z) > EscapeRadius {
			return iter, true
		}
		z = z*z + c
	}
	return 0, false
}

// Sweep は領域内の格子点をすべて評価し、発散した点だけを返す
// 列優先（x 外側、y 内側）で走査する
func Sweep(r Region) []Point {
	cols := Samples(real(r.Max)-real(r.Min), r.Resolution)
	rows := Samples(imag(r.Max)-imag(r.Min), r.Resolution)
	if cols == 0 || rows == 0 {
		return nil
	}

	var points []Point
	for i := 0; i < cols; i++ {
		x := real(r.Min) + float64(i)*r.Resolution
		for j := 0; j < rows; j++ {
			y := imag(r.Min) + float64(j)*r.Resolution
			if iter, escaped := Classify(complex(x, y), r.Constant); escaped {
				points = append(points, Point{X: x, Y: y, Iteration: iter})
			}
		}
	}
	return points
}
