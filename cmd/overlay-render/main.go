package main

import (
	"flag"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pupil-overlay-go/internal/ingest"
	"pupil-overlay-go/internal/output"
	"pupil-overlay-go/internal/overlay"
	"pupil-overlay-go/internal/pupil"
	"pupil-overlay-go/internal/types"
)

// Re-renders a recorded session: first pass collects the pupil datums,
// second pass renders every frame with the detection nearest in time.
func main() {
	var (
		logPath     = flag.String("log", "", "Raw IPC log recorded with -raw-log")
		outDir      = flag.String("out", "", "Directory for rendered stills")
		eyeID       = flag.Int("eye", 0, "Eye camera id to render")
		scale       = flag.Float64("scale", 1.0, "Scale factor")
		flipH       = flag.Bool("flip-horizontal", false, "Mirror frames left-right")
		flipV       = flag.Bool("flip-vertical", false, "Mirror frames top-bottom")
		renderPupil = flag.Bool("render-pupil", true, "Draw the detected pupil on each frame")
		alpha       = flag.Float64("alpha", 1.0, "Frame opacity on the preview canvas")
		canvasSize  = flag.String("canvas", "", "Compose frames onto a WxH canvas")
		format      = flag.String("format", "png", "Still format: png or jpeg")
		quality     = flag.Int("quality", 90, "JPEG quality for stored frames")
		window      = flag.Float64("window", 0.05, "Max timestamp distance in seconds when matching datums to frames")
		limit       = flag.Int("limit", 0, "Stop after this many rendered frames (0 renders all)")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warning, error")
		logJSON     = flag.Bool("log-json", false, "Log as JSON instead of text")
	)
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("invalid log level %q: %v", *logLevel, err)
	}
	logrus.SetLevel(level)
	if *logJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if *logPath == "" {
		logrus.Fatal("missing -log")
	}
	if *outDir == "" {
		logrus.Fatal("missing -out")
	}

	var canvas *overlay.Canvas
	if *canvasSize != "" {
		var w, h int
		if _, err := fmt.Sscanf(*canvasSize, "%dx%d", &w, &h); err != nil || w < 1 || h < 1 {
			logrus.Fatalf("invalid canvas size %q, want WxH", *canvasSize)
		}
		canvas = overlay.NewCanvas(w, h)
	}

	frameTopic := fmt.Sprintf("frame.eye.%d", *eyeID)
	pupilPrefix := fmt.Sprintf("pupil.%d", *eyeID)

	var recording pupil.Recording
	var records, badRecords int
	start := time.Now()

	reader, err := output.OpenRawLog(*logPath)
	if err != nil {
		logrus.Fatalf("open raw log: %v", err)
	}
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logrus.Fatalf("read raw log: %v", err)
		}
		records++
		topic, parts, err := output.UnpackMessage(rec.Payload)
		if err != nil {
			badRecords++
			continue
		}
		if !strings.HasPrefix(topic, pupilPrefix) || len(parts) < 1 {
			continue
		}
		p2, p3, err := pupil.DecodeDatum(topic, parts[0])
		if err != nil {
			badRecords++
			continue
		}
		recording.Add(p2, p3)
	}
	_ = reader.Close()
	recording.Sort()
	count2D, count3D := recording.Counts()
	logrus.Infof("collected %d 2d and %d 3d datums from %d records", count2D, count3D, records)

	var cursor float64
	runner, err := overlay.NewRunner(func() (*types.Pupil2D, *types.Pupil3D) {
		return recording.At(cursor, *window)
	}, types.OverlaySettings{
		Scale:          *scale,
		FlipHorizontal: *flipH,
		FlipVertical:   *flipV,
		RenderPupil:    *renderPupil,
		Alpha:          *alpha,
	})
	if err != nil {
		logrus.Fatalf("invalid overlay settings: %v", err)
	}

	stills, err := output.NewFrameWriter(*outDir, *format, *quality)
	if err != nil {
		logrus.Fatalf("failed to start still writer: %v", err)
	}

	var frames, rendered, skipped int
	reader, err = output.OpenRawLog(*logPath)
	if err != nil {
		logrus.Fatalf("open raw log: %v", err)
	}
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logrus.Fatalf("read raw log: %v", err)
		}
		topic, parts, err := output.UnpackMessage(rec.Payload)
		if err != nil || topic != frameTopic {
			continue
		}
		frames++
		message := append([][]byte{[]byte(topic)}, parts...)
		frame, ok := ingest.DecodeFrame(message, *eyeID, 1)
		if !ok {
			skipped++
			continue
		}
		cursor = frame.Timestamp
		img, err := runner.Render(&frame)
		if err != nil {
			skipped++
			logrus.Warnf("render failed for frame %d: %v", frame.Index, err)
			continue
		}
		out := img
		if canvas != nil {
			out = canvas.Compose(img, image.Pt(0, 0), *alpha)
		}
		if err := stills.WriteFrame(out, frame.Timestamp); err != nil {
			logrus.Fatalf("still write failed: %v", err)
		}
		rendered++
		if *limit > 0 && rendered >= *limit {
			break
		}
	}
	_ = reader.Close()

	if err := stills.WriteManifest(map[string]any{
		"source":    *logPath,
		"eye_id":    *eyeID,
		"datums_2d": count2D,
		"datums_3d": count3D,
	}); err != nil {
		logrus.Fatalf("manifest write failed: %v", err)
	}

	fmt.Printf("summary: records=%d bad=%d frames=%d rendered=%d skipped=%d elapsed=%s\n",
		records, badRecords, frames, rendered, skipped, time.Since(start).Round(time.Millisecond))
}
