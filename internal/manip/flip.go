package manip

import "image"

// HorizontalFlip mirrors the frame across its vertical axis when enabled.
// Disabled or fake frames pass through as the same buffer, untouched.
type HorizontalFlip struct{}

var _ Manipulator[bool] = HorizontalFlip{}

func (HorizontalFlip) ApplyTo(img *image.RGBA, enabled bool, ctx Context) (*image.RGBA, error) {
	if !enabled || ctx.IsFakeFrame {
		return img, nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[out.PixOffset(0, y):]
		for x := 0; x < w; x++ {
			copy(dst[(w-1-x)*4:(w-x)*4], src[x*4:x*4+4])
		}
	}
	return out, nil
}

// VerticalFlip mirrors the frame across its horizontal axis when enabled,
// with the same pass-through behavior as HorizontalFlip.
type VerticalFlip struct{}

var _ Manipulator[bool] = VerticalFlip{}

func (VerticalFlip) ApplyTo(img *image.RGBA, enabled bool, ctx Context) (*image.RGBA, error) {
	if !enabled || ctx.IsFakeFrame {
		return img, nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	row := w * 4
	for y := 0; y < h; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[out.PixOffset(0, h-1-y):]
		copy(dst[:row], src[:row])
	}
	return out, nil
}
