// Package codec converts eye-camera frame payloads to RGBA buffers and
// encodes preview images for transport and recording.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

var (
	ErrUnknownFormat = errors.New("unknown frame format")
	ErrBadPayload    = errors.New("frame payload does not match geometry")
)

// Decode converts one raw frame payload into an RGBA buffer. Format names
// follow the frame publisher: "jpeg" (the default wire format), "gray" for
// 8-bit luminance, "bgr" for 24-bit OpenCV channel order.
func Decode(payload []byte, format string, width, height int) (*image.RGBA, error) {
	switch format {
	case "jpeg", "mjpeg":
		return decodeJPEG(payload, width, height)
	case "gray", "gray8":
		return decodeGray(payload, width, height)
	case "bgr", "bgr24":
		return decodeBGR(payload, width, height)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func decodeJPEG(payload []byte, width, height int) (*image.RGBA, error) {
	src, err := jpeg.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	b := src.Bounds()
	if width > 0 && height > 0 && (b.Dx() != width || b.Dy() != height) {
		return nil, fmt.Errorf("%w: jpeg is %dx%d, header says %dx%d",
			ErrBadPayload, b.Dx(), b.Dy(), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)
	return img, nil
}

func decodeGray(payload []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(payload) != width*height {
		return nil, fmt.Errorf("%w: gray payload %d bytes for %dx%d",
			ErrBadPayload, len(payload), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, v := range payload {
		j := i * 4
		img.Pix[j+0] = v
		img.Pix[j+1] = v
		img.Pix[j+2] = v
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

func decodeBGR(payload []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(payload) != width*height*3 {
		return nil, fmt.Errorf("%w: bgr payload %d bytes for %dx%d",
			ErrBadPayload, len(payload), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		s := i * 3
		d := i * 4
		img.Pix[d+0] = payload[s+2]
		img.Pix[d+1] = payload[s+1]
		img.Pix[d+2] = payload[s+0]
		img.Pix[d+3] = 0xff
	}
	return img, nil
}

// EncodeJPEG renders img to JPEG at the given quality (1..100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
