package julia

import (
	"math"
	"testing"
)

func TestClassifyOutsideRadiusEscapesImmediately(t *testing.T) {
	constants := []complex128{0, complex(-1, 0.1), complex(0.285, 0.01), complex(-0.8, 0.156)}
	points := []complex128{complex(2.1, 0), complex(0, -3), complex(1.5, 1.5), complex(-10, 10)}

	for _, c := range constants {
		for _, z := range points {
			iter, escaped := Classify(z, c)
			if !escaped || iter != 0 {
				t.Errorf("Classify(%v, %v) = (%d, %v), want (0, true)", z, c, iter, escaped)
			}
		}
	}
}

func TestClassifyFixedPointNeverEscapes(t *testing.T) {
	iter, escaped := Classify(0, 0)
	if escaped {
		t.Errorf("Classify(0, 0) escaped at iteration %d", iter)
	}
}

func TestClassifyBoundaryIsNotEscape(t *testing.T) {
	// |z| == 2 is not strictly outside the radius; with c = 0 the orbit is
	// 2 -> 4, so the escape is reported one step later.
	iter, escaped := Classify(2, 0)
	if !escaped || iter != 1 {
		t.Errorf("Classify(2, 0) = (%d, %v), want (1, true)", iter, escaped)
	}
}

func TestClassifyIterationRange(t *testing.T) {
	c := complex(-1, 0.1)
	for x := -1.0; x < 1.0; x += 0.05 {
		for y := -1.0; y < 1.0; y += 0.05 {
			iter, escaped := Classify(complex(x, y), c)
			if !escaped {
				continue
			}
			if iter < 0 || iter >= MaxIterations {
				t.Fatalf("Classify(%g%+gi) iteration %d out of [0, %d)", x, y, iter, MaxIterations)
			}
		}
	}
}

func TestSweepKeepsOnlyEscapedPoints(t *testing.T) {
	r := Region{
		Min:        complex(-1, -1),
		Max:        complex(1, 1),
		Constant:   complex(-1, 0.1),
		Resolution: 0.1,
	}

	points := Sweep(r)
	if len(points) == 0 {
		t.Fatal("expected escaped points")
	}
	if len(points) >= 20*20 {
		t.Errorf("expected some bounded points to be dropped, got %d of %d", len(points), 20*20)
	}

	for _, p := range points {
		iter, escaped := Classify(complex(p.X, p.Y), r.Constant)
		if !escaped || iter != p.Iteration {
			t.Errorf("point (%g, %g) reported iteration %d, kernel says (%d, %v)", p.X, p.Y, p.Iteration, iter, escaped)
		}
		if p.X < -1 || p.X >= 1 || p.Y < -1 || p.Y >= 1 {
			t.Errorf("point (%g, %g) outside region", p.X, p.Y)
		}
	}
}

func TestSweepEmptyRegion(t *testing.T) {
	tests := []struct {
		name string
		r    Region
	}{
		{"degenerate width", Region{Min: complex(1, -1), Max: complex(1, 1), Resolution: 0.1}},
		{"inverted width", Region{Min: complex(1, -1), Max: complex(0, 1), Resolution: 0.1}},
		{"coarse resolution", Region{Min: complex(-1, -1), Max: complex(1, 1), Resolution: 3}},
		{"zero height", Region{Min: complex(-1, 0), Max: complex(1, 0), Resolution: 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sweep(tt.r); len(got) != 0 {
				t.Errorf("expected no points, got %d", len(got))
			}
		})
	}
}

func TestSamples(t *testing.T) {
	tests := []struct {
		width, res float64
		want       int
	}{
		{2, 0.1, 20},
		{0.6, 0.3, 2},
		{0.2, 0.3, 0},
		{2, 3, 0},
		{0, 0.1, 0},
		{-1, 0.1, 0},
		{1, 0, 0},
		{2, 1.0 / 1000, 2000},
	}

	for _, tt := range tests {
		if got := Samples(tt.width, tt.res); got != tt.want {
			t.Errorf("Samples(%g, %g) = %d, want %d", tt.width, tt.res, got, tt.want)
		}
	}
}

func BenchmarkSweep(b *testing.B) {
	r := Region{
		Min:        complex(-1, -1),
		Max:        complex(1, 1),
		Constant:   complex(-1, 0.1),
		Resolution: 0.01,
	}
	for b.Loop() {
		_ = Sweep(r)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
