package manip

import (
	"fmt"
	"image/color"
	"math"

	"github.com/gogpu/gg"

	"pupil-overlay-go/internal/types"
)

// Outline sampling density for detection ellipses.
const outlinePoints = 10

const centerMarkRadius = 5

// EllipsePoints samples n outline points of an ellipse. Axes are full
// diameters, the angle is in degrees, and the samples cover [0, 2pi) with
// the endpoint excluded. Points are rotated by -angle before translation;
// the sign follows the convention the pupil detectors report angles in.
func EllipsePoints(center, axes [2]float64, angle float64, n int) [][2]float64 {
	sin, cos := math.Sincos(-angle * math.Pi / 180)
	pts := make([][2]float64, n)
	for k := range pts {
		t := 2 * math.Pi * float64(k) / float64(n)
		x := axes[0] / 2 * math.Cos(t)
		y := axes[1] / 2 * math.Sin(t)
		pts[k] = [2]float64{
			x*cos + y*sin + center[0],
			-x*sin + y*cos + center[1],
		}
	}
	return pts
}

// pixelCoord truncates toward zero, the cast the drawing grid needs.
// Non-finite values have no place on the grid and report an error.
func pixelCoord(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("value %v does not fit the pixel grid", v)
	}
	return int(v), nil
}

func confidenceAlpha(confidence float64) uint8 {
	a := math.Round(confidence * 255)
	if a < 0 {
		return 0
	}
	if a > 255 {
		return 255
	}
	return uint8(a)
}

// renderEllipse draws a detection outline as a closed 1px polyline plus a
// filled marker dot at the center. Alpha encodes the detection confidence.
// Geometry that cannot be converted to pixel coordinates is an error for
// the caller; nothing is drawn in that case.
func renderEllipse(dc *gg.Context, e types.Ellipse, col color.NRGBA, confidence float64) error {
	pts := EllipsePoints(e.Center, e.Axes, e.Angle, outlinePoints)
	grid := make([][2]int, len(pts))
	for i, p := range pts {
		x, err := pixelCoord(p[0])
		if err != nil {
			return err
		}
		y, err := pixelCoord(p[1])
		if err != nil {
			return err
		}
		grid[i] = [2]int{x, y}
	}
	cx, err := pixelCoord(e.Center[0])
	if err != nil {
		return err
	}
	cy, err := pixelCoord(e.Center[1])
	if err != nil {
		return err
	}

	col.A = confidenceAlpha(confidence)
	dc.SetColor(col)
	dc.MoveTo(float64(grid[0][0]), float64(grid[0][1]))
	for _, p := range grid[1:] {
		dc.LineTo(float64(p[0]), float64(p[1]))
	}
	dc.ClosePath()
	dc.SetLineWidth(1)
	if err := dc.Stroke(); err != nil {
		return err
	}
	dc.DrawCircle(float64(cx), float64(cy), centerMarkRadius)
	return dc.Fill()
}

// renderSphere outlines the projected eyeball with a 2px stroke. Axes
// arrive as diameters and are halved; the angle is truncated to whole
// degrees. While the 3D model is unstable its geometry can be NaN, and a
// conversion failure skips just this outline without touching the rest of
// the frame's drawings.
func renderSphere(dc *gg.Context, s types.Ellipse, modelConfidence float64) error {
	cx, err := pixelCoord(s.Center[0])
	if err != nil {
		return nil
	}
	cy, err := pixelCoord(s.Center[1])
	if err != nil {
		return nil
	}
	ax, err := pixelCoord(s.Axes[0] / 2)
	if err != nil {
		return nil
	}
	ay, err := pixelCoord(s.Axes[1] / 2)
	if err != nil {
		return nil
	}
	angle, err := pixelCoord(s.Angle)
	if err != nil {
		return nil
	}

	col := colorSphere
	col.A = confidenceAlpha(modelConfidence)
	dc.Push()
	dc.RotateAbout(float64(angle)*math.Pi/180, float64(cx), float64(cy))
	dc.DrawEllipse(float64(cx), float64(cy), float64(ax), float64(ay))
	dc.Pop()
	dc.SetColor(col)
	dc.SetLineWidth(2)
	return dc.Stroke()
}
