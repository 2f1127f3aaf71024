package julia

import (
	"errors"
	"math"
	"testing"
)

func TestRegionValidate(t *testing.T) {
	tests := []struct {
		name    string
		r       Region
		wantErr bool
	}{
		{"valid", Region{Min: complex(-1, -1), Max: complex(1, 1), Resolution: 0.1}, false},
		{"inverted y is allowed", Region{Min: complex(-1, 1), Max: complex(1, -1), Resolution: 0.1}, false},
		{"equal x", Region{Min: complex(1, -1), Max: complex(1, 1), Resolution: 0.1}, true},
		{"inverted x", Region{Min: complex(1, -1), Max: complex(-1, 1), Resolution: 0.1}, true},
		{"zero resolution", Region{Min: complex(-1, -1), Max: complex(1, 1)}, true},
		{"negative resolution", Region{Min: complex(-1, -1), Max: complex(1, 1), Resolution: -0.1}, true},
		{"nan bound", Region{Min: complex(math.NaN(), -1), Max: complex(1, 1), Resolution: 0.1}, true},
		{"inf resolution", Region{Min: complex(-1, -1), Max: complex(1, 1), Resolution: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRegion) {
				t.Errorf("expected ErrInvalidRegion, got %v", err)
			}
		})
	}
}

func TestPartitionCoverage(t *testing.T) {
	regions := []Region{
		{Min: complex(-1, -1), Max: complex(1, 1), Resolution: 0.1},
		{Min: complex(-1, -1), Max: complex(1, 1), Resolution: 0.3},
		{Min: complex(-2.5, -1), Max: complex(1.3, 1), Resolution: 0.007},
		{Min: complex(-1, -1), Max: complex(1, 1), Resolution: 3},
		{Min: complex(0.1, 0.2), Max: complex(0.1000001, 0.3), Resolution: 1e-9},
	}

	for _, r := range regions {
		for _, n := range []int{1, 2, 3, 4, 7, 12, 64} {
			parts := Partition(r, n)
			if len(parts) != n {
				t.Fatalf("Partition(n=%d) returned %d parts", n, len(parts))
			}

			if real(parts[0].Min) != real(r.Min) {
				t.Errorf("n=%d: first strip starts at %g, want %g", n, real(parts[0].Min), real(r.Min))
			}
			if real(parts[n-1].Max) != real(r.Max) {
				t.Errorf("n=%d: last strip ends at %g, want exactly %g", n, real(parts[n-1].Max), real(r.Max))
			}

			for i, p := range parts {
				if real(p.Min) > real(p.Max) {
					t.Errorf("n=%d: strip %d inverted [%g, %g]", n, i, real(p.Min), real(p.Max))
				}
				if real(p.Max) > real(r.Max) {
					t.Errorf("n=%d: strip %d exceeds max (%g > %g)", n, i, real(p.Max), real(r.Max))
				}
				if i > 0 && !almostEqual(real(parts[i-1].Max), real(p.Min)) {
					t.Errorf("n=%d: gap between strip %d and %d (%g vs %g)", n, i-1, i, real(parts[i-1].Max), real(p.Min))
				}
				if imag(p.Min) != imag(r.Min) || imag(p.Max) != imag(r.Max) {
					t.Errorf("n=%d: strip %d y-span [%g, %g], want [%g, %g]",
						n, i, imag(p.Min), imag(p.Max), imag(r.Min), imag(r.Max))
				}
				if p.Resolution != r.Resolution || p.Constant != r.Constant {
					t.Errorf("n=%d: strip %d lost resolution or constant", n, i)
				}
			}
		}
	}
}

func TestPartitionFollowsCurrentYBounds(t *testing.T) {
	r := Region{Min: complex(-1, -0.25), Max: complex(1, 0.75), Resolution: 0.05}
	for i, p := range Partition(r, 4) {
		if imag(p.Min) != -0.25 || imag(p.Max) != 0.75 {
			t.Errorf("strip %d y-span [%g, %g], want [-0.25, 0.75]", i, imag(p.Min), imag(p.Max))
		}
	}
}

func TestPartitionSamplesMatchWholeRegion(t *testing.T) {
	r := Region{Min: complex(-1, -1), Max: complex(1, 1), Resolution: 0.3}
	whole := Samples(r.Width(), r.Resolution)

	for _, n := range []int{1, 2, 4, 5, 12} {
		total := 0
		for _, p := range Partition(r, n) {
			total += Samples(p.Width(), p.Resolution)
		}
		if total != whole {
			t.Errorf("n=%d: strips sample %d columns, whole region samples %d", n, total, whole)
		}
	}
}

func TestPartitionInvalidCount(t *testing.T) {
	r := Region{Min: complex(-1, -1), Max: complex(1, 1), Resolution: 0.1}
	if parts := Partition(r, 0); parts != nil {
		t.Errorf("expected nil for n=0, got %d parts", len(parts))
	}
}

func TestFormatComplex(t *testing.T) {
	tests := []struct {
		c    complex128
		want string
	}{
		{complex(-1, 0.1), "-1+0.1i"},
		{complex(0.285, -0.01), "0.285-0.01i"},
		{0, "0+0i"},
	}

	for _, tt := range tests {
		if got := FormatComplex(tt.c); got != tt.want {
			t.Errorf("FormatComplex(%v) = %q, want %q", tt.c, got, tt.want)
		}
	}
}
