package manip

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ScaleTransform resizes the frame by a factor using bilinear resampling.
// It carries no fake-frame guard and resamples even at factor 1.0, so its
// output is always a fresh buffer.
type ScaleTransform struct{}

var _ Manipulator[float64] = ScaleTransform{}

func (ScaleTransform) ApplyTo(img *image.RGBA, factor float64, _ Context) (*image.RGBA, error) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("%w: scale factor %v", ErrInvalidParameter, factor)
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: scale factor %v leaves no pixels", ErrInvalidParameter, factor)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}
