package output

import (
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
)

// FrameWriter emits rendered frames as a numbered still series plus a
// metadata.json manifest describing the run.
type FrameWriter struct {
	dir     string
	format  string
	quality int

	count   int
	firstTS float64
	lastTS  float64
}

func NewFrameWriter(outputDir string, format string, quality int) (*FrameWriter, error) {
	switch format {
	case "png", "jpeg":
	default:
		return nil, fmt.Errorf("unsupported still format %q", format)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &FrameWriter{
		dir:     outputDir,
		format:  format,
		quality: quality,
	}, nil
}

// WriteFrame stores one rendered frame. Stills are numbered by write
// order, not the capture index, so repeated indices stay distinct.
func (w *FrameWriter) WriteFrame(img image.Image, timestamp float64) error {
	ext := w.format
	if ext == "jpeg" {
		ext = "jpg"
	}
	filename := filepath.Join(w.dir, fmt.Sprintf("frame_%06d.%s", w.count, ext))
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	switch w.format {
	case "png":
		err = png.Encode(f, img)
	case "jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: w.quality})
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if w.count == 0 {
		w.firstTS = timestamp
	}
	w.lastTS = timestamp
	w.count++
	return nil
}

func (w *FrameWriter) Count() int {
	return w.count
}

// WriteManifest writes metadata.json next to the stills. Extra fields
// from the caller are merged over the writer's own counters.
func (w *FrameWriter) WriteManifest(extra map[string]any) error {
	meta := map[string]any{
		"frames":          w.count,
		"format":          w.format,
		"first_timestamp": w.firstTS,
		"last_timestamp":  w.lastTS,
	}
	for key, value := range extra {
		meta[key] = value
	}
	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.dir, "metadata.json"), append(payload, '\n'), 0o644)
}
