// Package simulator produces a synthetic eye-camera stream with a
// matching pupil state, so the overlay pipeline can run without a headset
// attached.
package simulator

import (
	"context"
	"image"
	stddraw "image/draw"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gogpu/gg"

	"pupil-overlay-go/internal/manip"
	"pupil-overlay-go/internal/types"
)

type Options struct {
	Width     int     // default 192
	Height    int     // default 192
	EyeID     int
	FrameRate float64 // frames per second, default 60

	// DropoutEvery > 0 inserts a simulated signal loss of DropoutFor at
	// that period; the stream then carries placeholder frames.
	DropoutEvery time.Duration
	DropoutFor   time.Duration
}

// Source generates frames and keeps the pupil state they were drawn with.
type Source struct {
	opts  Options
	start time.Time

	mu sync.RWMutex
	p2 *types.Pupil2D
	p3 *types.Pupil3D
}

func New(opts Options) *Source {
	if opts.Width <= 0 {
		opts.Width = 192
	}
	if opts.Height <= 0 {
		opts.Height = 192
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 60
	}
	if opts.DropoutFor <= 0 {
		opts.DropoutFor = time.Second
	}
	return &Source{opts: opts, start: time.Now()}
}

// Getter exposes the simulated detections the same way the live
// subscriber does.
func (s *Source) Getter() manip.PupilGetter {
	return func() (*types.Pupil2D, *types.Pupil3D) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.p2, s.p3
	}
}

// Stream emits frames at the configured rate until ctx ends. During a
// simulated dropout the frames are placeholders and the pupil state goes
// stale, matching what the live path produces when the feed dies.
func (s *Source) Stream(ctx context.Context) <-chan types.Frame {
	out := make(chan types.Frame)
	go func() {
		defer close(out)

		interval := time.Duration(float64(time.Second) / s.opts.FrameRate)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		gray := grayFrame(s.opts.Width, s.opts.Height)
		index := 0

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Since(s.start)
				t := now.Seconds()

				frame := types.Frame{
					Topic:     topicFor(s.opts.EyeID),
					EyeID:     s.opts.EyeID,
					Width:     s.opts.Width,
					Height:    s.opts.Height,
					Index:     index,
					Timestamp: t,
					Format:    "synthetic",
				}
				if s.dropout(now) {
					frame.Fake = true
					frame.Pixels = gray
				} else {
					p2, p3 := s.pupilState(t)
					s.mu.Lock()
					s.p2, s.p3 = p2, p3
					s.mu.Unlock()
					frame.Pixels = s.renderEye(p2)
				}

				select {
				case <-ctx.Done():
					return
				case out <- frame:
				}
				index++
			}
		}
	}()
	return out
}

func (s *Source) dropout(elapsed time.Duration) bool {
	if s.opts.DropoutEvery <= 0 {
		return false
	}
	phase := elapsed % s.opts.DropoutEvery
	return phase >= s.opts.DropoutEvery-s.opts.DropoutFor
}

// pupilState wanders the pupil along a Lissajous path with breathing axes
// and a confidence wave, roughly what a restless eye produces.
func (s *Source) pupilState(t float64) (*types.Pupil2D, *types.Pupil3D) {
	w := float64(s.opts.Width)
	h := float64(s.opts.Height)
	cx := w/2 + w*0.18*math.Sin(2*math.Pi*0.23*t)
	cy := h/2 + h*0.18*math.Sin(2*math.Pi*0.31*t+1.1)
	d := math.Min(w, h) * 0.22 * (1 + 0.15*math.Sin(2*math.Pi*0.11*t))
	angle := 30 * math.Sin(2*math.Pi*0.05*t)
	confidence := 0.75 + 0.25*math.Sin(2*math.Pi*0.2*t)

	ellipse := types.Ellipse{
		Center: [2]float64{cx, cy},
		Axes:   [2]float64{d, d * 0.92},
		Angle:  angle,
	}
	p2 := &types.Pupil2D{
		Topic:      "pupil." + strconv.Itoa(s.opts.EyeID),
		Method:     "2d c++",
		Ellipse:    ellipse,
		Diameter:   d,
		Confidence: confidence,
		Timestamp:  t,
	}
	p3 := &types.Pupil3D{
		Topic:           "pupil." + strconv.Itoa(s.opts.EyeID) + ".3d",
		Method:          "pye3d 0.3.0 real-time",
		Ellipse:         ellipse,
		Diameter3D:      d * 0.021,
		Confidence:      confidence,
		ModelConfidence: 0.85 + 0.15*math.Sin(2*math.Pi*0.04*t),
		Sphere: &types.Ellipse{
			Center: [2]float64{w / 2, h / 2},
			Axes:   [2]float64{w * 0.9, h * 0.9},
			Angle:  90,
		},
		Timestamp: t,
	}
	return p2, p3
}

// renderEye draws a plausible IR eye image: dark field, lighter iris disc,
// dark pupil ellipse, one specular glint.
func (s *Source) renderEye(p2 *types.Pupil2D) *image.RGBA {
	w, h := s.opts.Width, s.opts.Height
	dc := gg.NewContext(w, h)
	defer dc.Close()
	dc.ClearWithColor(gg.RGBA{R: 0.11, G: 0.11, B: 0.11, A: 1})

	cx := p2.Ellipse.Center[0]
	cy := p2.Ellipse.Center[1]

	dc.SetRGB(0.36, 0.36, 0.36)
	dc.DrawCircle(cx, cy, math.Min(float64(w), float64(h))*0.42)
	if err := dc.Fill(); err != nil {
		return grayFrame(w, h)
	}

	dc.SetRGB(0.05, 0.05, 0.05)
	dc.Push()
	dc.RotateAbout(p2.Ellipse.Angle*math.Pi/180, cx, cy)
	dc.DrawEllipse(cx, cy, p2.Ellipse.Axes[0]/2, p2.Ellipse.Axes[1]/2)
	dc.Pop()
	if err := dc.Fill(); err != nil {
		return grayFrame(w, h)
	}

	dc.SetRGB(0.92, 0.92, 0.92)
	dc.DrawCircle(cx-p2.Ellipse.Axes[0]*0.22, cy-p2.Ellipse.Axes[1]*0.22, 2.5)
	if err := dc.Fill(); err != nil {
		return grayFrame(w, h)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stddraw.Draw(img, img.Bounds(), dc.Image(), image.Point{}, stddraw.Src)
	return img
}

func grayFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = 128
		img.Pix[i+1] = 128
		img.Pix[i+2] = 128
		img.Pix[i+3] = 255
	}
	return img
}

func topicFor(eyeID int) string {
	return "frame.eye." + strconv.Itoa(eyeID)
}
