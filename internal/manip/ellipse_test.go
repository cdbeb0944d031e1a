package manip

import (
	"math"
	"testing"
)

func TestEllipsePointsReference(t *testing.T) {
	pts := EllipsePoints([2]float64{0, 0}, [2]float64{2, 2}, 0, 4)
	want := [][2]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	if len(pts) != len(want) {
		t.Fatalf("got %d points, want %d", len(pts), len(want))
	}
	for i := range want {
		if math.Abs(pts[i][0]-want[i][0]) > 1e-9 || math.Abs(pts[i][1]-want[i][1]) > 1e-9 {
			t.Fatalf("point %d = %v, want %v", i, pts[i], want[i])
		}
	}
}

func TestEllipsePointsRotated(t *testing.T) {
	pts := EllipsePoints([2]float64{10, 20}, [2]float64{4, 2}, 90, 4)
	want := [][2]float64{{10, 22}, {9, 20}, {10, 18}, {11, 20}}
	for i := range want {
		if math.Abs(pts[i][0]-want[i][0]) > 1e-9 || math.Abs(pts[i][1]-want[i][1]) > 1e-9 {
			t.Fatalf("point %d = %v, want %v", i, pts[i], want[i])
		}
	}
}

func TestEllipsePointsCount(t *testing.T) {
	pts := EllipsePoints([2]float64{5, 5}, [2]float64{8, 6}, 30, outlinePoints)
	if len(pts) != outlinePoints {
		t.Fatalf("got %d points, want %d", len(pts), outlinePoints)
	}
	// Endpoint excluded: the last sample must not wrap onto the first.
	if math.Abs(pts[0][0]-pts[len(pts)-1][0]) < 1e-9 && math.Abs(pts[0][1]-pts[len(pts)-1][1]) < 1e-9 {
		t.Fatalf("last point %v duplicates first %v", pts[len(pts)-1], pts[0])
	}
}

func TestPixelCoord(t *testing.T) {
	cases := []struct {
		in      float64
		want    int
		wantErr bool
	}{
		{3.7, 3, false},
		{-3.7, -3, false},
		{0, 0, false},
		{math.NaN(), 0, true},
		{math.Inf(1), 0, true},
		{math.Inf(-1), 0, true},
		{1e12, 0, true},
	}
	for _, c := range cases {
		got, err := pixelCoord(c.in)
		if c.wantErr {
			if err == nil {
				t.Fatalf("pixelCoord(%v): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("pixelCoord(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("pixelCoord(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestConfidenceAlpha(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{0, 0},
		{1, 255},
		{0.5, 128},
		{2, 255},
		{-1, 0},
	}
	for _, c := range cases {
		if got := confidenceAlpha(c.in); got != c.want {
			t.Fatalf("confidenceAlpha(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
