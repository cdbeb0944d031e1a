package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Matches the viewer's dark theme.
var canvasBackground = color.RGBA{R: 18, G: 18, B: 18, A: 255}

// Canvas is the preview surface eye images are pasted onto. It reuses one
// buffer, so the caller must finish with a composed frame before composing
// the next.
type Canvas struct {
	base *image.RGBA
}

func NewCanvas(width, height int) *Canvas {
	c := &Canvas{base: image.NewRGBA(image.Rect(0, 0, width, height))}
	return c
}

// Compose clears the canvas and pastes img at origin with uniform alpha.
// Placement outside the canvas clips; alpha 0 leaves only the background.
func (c *Canvas) Compose(img *image.RGBA, origin image.Point, alpha float64) *image.RGBA {
	draw.Draw(c.base, c.base.Bounds(), image.NewUniform(canvasBackground), image.Point{}, draw.Src)
	if img == nil || alpha <= 0 {
		return c.base
	}
	a := math.Round(alpha * 255)
	if a > 255 {
		a = 255
	}
	target := image.Rectangle{Min: origin, Max: origin.Add(img.Bounds().Size())}
	mask := image.NewUniform(color.Alpha{A: uint8(a)})
	draw.DrawMask(c.base, target, img, img.Bounds().Min, mask, image.Point{}, draw.Over)
	return c.base
}
