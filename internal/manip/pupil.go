package manip

import (
	"image"
	"image/color"
	stddraw "image/draw"

	"github.com/gogpu/gg"

	"pupil-overlay-go/internal/types"
)

// Overlay palette. Stroke alpha encodes detection confidence for the 2D
// and 3D outlines and model confidence for the sphere.
var (
	color2D     = color.NRGBA{R: 0, G: 127, B: 255}
	color3D     = color.NRGBA{R: 255, G: 0, B: 0}
	colorSphere = color.NRGBA{R: 0, G: 230, B: 26}
)

// PupilGetter supplies the detections matched to the frame being rendered.
// Either result may be nil.
type PupilGetter func() (*types.Pupil2D, *types.Pupil3D)

// PupilRenderer draws pupil detections onto the frame in place, in fixed
// order: 2D ellipse, 3D ellipse, projected eyeball outline. While disabled
// or on fake frames the getter is never consulted.
type PupilRenderer struct {
	getter PupilGetter
}

func NewPupilRenderer(getter PupilGetter) *PupilRenderer {
	return &PupilRenderer{getter: getter}
}

var _ Manipulator[bool] = (*PupilRenderer)(nil)

func (r *PupilRenderer) ApplyTo(img *image.RGBA, enabled bool, ctx Context) (*image.RGBA, error) {
	if !enabled || ctx.IsFakeFrame {
		return img, nil
	}
	p2, p3 := r.getter()
	if p2 == nil && p3 == nil {
		return img, nil
	}

	dc := gg.NewContextForImage(img)
	defer dc.Close()
	if p2 != nil {
		if err := renderEllipse(dc, p2.Ellipse, color2D, p2.Confidence); err != nil {
			return nil, err
		}
	}
	if p3 != nil {
		if err := renderEllipse(dc, p3.Ellipse, color3D, p3.Confidence); err != nil {
			return nil, err
		}
		if p3.Sphere != nil {
			if err := renderSphere(dc, *p3.Sphere, p3.ModelConfidence); err != nil {
				return nil, err
			}
		}
	}

	// Marker pixels carry confidence as their alpha, so the copy back
	// blends instead of replacing. Untouched pixels are opaque and pass
	// through unchanged.
	stddraw.Draw(img, img.Bounds(), dc.Image(), image.Point{}, stddraw.Over)
	return img, nil
}
