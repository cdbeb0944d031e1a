package manip

import (
	"bytes"
	"image"
	"testing"
)

// gradientRGBA makes an image where every pixel is unique, so any
// misplaced row or column shows up.
func gradientRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = uint8(x)
			img.Pix[i+1] = uint8(y)
			img.Pix[i+2] = uint8(x + y)
			img.Pix[i+3] = 255
		}
	}
	return img
}

func TestHorizontalFlipMirrorsColumns(t *testing.T) {
	img := gradientRGBA(7, 5)
	out, err := HorizontalFlip{}.ApplyTo(img, true, Context{})
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 7; x++ {
			want := img.RGBAAt(6-x, y)
			if got := out.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestVerticalFlipMirrorsRows(t *testing.T) {
	img := gradientRGBA(7, 5)
	out, err := VerticalFlip{}.ApplyTo(img, true, Context{})
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 7; x++ {
			want := img.RGBAAt(x, 4-y)
			if got := out.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestFlipDisabledReturnsSameBuffer(t *testing.T) {
	img := gradientRGBA(6, 4)
	before := append([]byte(nil), img.Pix...)

	out, err := HorizontalFlip{}.ApplyTo(img, false, Context{})
	if err != nil {
		t.Fatalf("hflip: %v", err)
	}
	if out != img {
		t.Fatalf("disabled hflip returned a new buffer")
	}
	out, err = VerticalFlip{}.ApplyTo(img, false, Context{})
	if err != nil {
		t.Fatalf("vflip: %v", err)
	}
	if out != img {
		t.Fatalf("disabled vflip returned a new buffer")
	}
	if !bytes.Equal(img.Pix, before) {
		t.Fatalf("disabled flip mutated pixels")
	}
}

func TestFlipSkipsFakeFrames(t *testing.T) {
	img := gradientRGBA(6, 4)
	out, err := HorizontalFlip{}.ApplyTo(img, true, Context{IsFakeFrame: true})
	if err != nil {
		t.Fatalf("hflip: %v", err)
	}
	if out != img {
		t.Fatalf("fake frame was flipped")
	}
	out, err = VerticalFlip{}.ApplyTo(img, true, Context{IsFakeFrame: true})
	if err != nil {
		t.Fatalf("vflip: %v", err)
	}
	if out != img {
		t.Fatalf("fake frame was flipped")
	}
}

func TestFlipTwiceRestores(t *testing.T) {
	img := gradientRGBA(9, 6)
	once, err := HorizontalFlip{}.ApplyTo(img, true, Context{})
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	twice, err := HorizontalFlip{}.ApplyTo(once, true, Context{})
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if !bytes.Equal(twice.Pix, img.Pix) {
		t.Fatalf("double horizontal flip is not identity")
	}

	once, err = VerticalFlip{}.ApplyTo(img, true, Context{})
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	twice, err = VerticalFlip{}.ApplyTo(once, true, Context{})
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if !bytes.Equal(twice.Pix, img.Pix) {
		t.Fatalf("double vertical flip is not identity")
	}
}
