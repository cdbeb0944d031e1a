package manip

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"testing"
)

func uniformRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestScaleDoublesDimensions(t *testing.T) {
	img := uniformRGBA(8, 6, color.RGBA{R: 40, G: 80, B: 120, A: 255})
	out, err := ScaleTransform{}.ApplyTo(img, 2.0, Context{})
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if out.Bounds().Dx() != 16 || out.Bounds().Dy() != 12 {
		t.Fatalf("got %dx%d, want 16x12", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestScaleHalves(t *testing.T) {
	img := uniformRGBA(8, 6, color.RGBA{R: 40, G: 80, B: 120, A: 255})
	out, err := ScaleTransform{}.ApplyTo(img, 0.5, Context{})
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if out.Bounds().Dx() != 4 || out.Bounds().Dy() != 3 {
		t.Fatalf("got %dx%d, want 4x3", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestScaleIdentityFactorStillResamples(t *testing.T) {
	img := uniformRGBA(8, 6, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	out, err := ScaleTransform{}.ApplyTo(img, 1.0, Context{})
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if out == img {
		t.Fatalf("factor 1.0 returned the input buffer")
	}
	if out.Bounds() != img.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
	for i := range out.Pix {
		d := int(out.Pix[i]) - int(img.Pix[i])
		if d < -1 || d > 1 {
			t.Fatalf("pixel byte %d drifted: %d vs %d", i, out.Pix[i], img.Pix[i])
		}
	}
}

func TestScaleAppliesToFakeFrames(t *testing.T) {
	img := uniformRGBA(10, 10, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	out, err := ScaleTransform{}.ApplyTo(img, 0.5, Context{IsFakeFrame: true})
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if out.Bounds().Dx() != 5 || out.Bounds().Dy() != 5 {
		t.Fatalf("fake frame not resized: %v", out.Bounds())
	}
}

func TestScaleRejectsInvalidFactors(t *testing.T) {
	img := uniformRGBA(8, 6, color.RGBA{A: 255})
	for _, factor := range []float64{0, -2, math.NaN(), math.Inf(1), math.Inf(-1), 1e-9} {
		_, err := ScaleTransform{}.ApplyTo(img, factor, Context{})
		if !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("factor %v: err = %v, want ErrInvalidParameter", factor, err)
		}
	}
}
