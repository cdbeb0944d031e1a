// Package overlay assembles the manipulation chain for one eye stream and
// composites its output onto the preview canvas.
package overlay

import (
	"fmt"
	"image"
	"math"
	"sync"

	"pupil-overlay-go/internal/manip"
	"pupil-overlay-go/internal/types"
)

// ValidateSettings rejects settings no pipeline can run with.
func ValidateSettings(s types.OverlaySettings) error {
	if s.Scale <= 0 || math.IsNaN(s.Scale) || math.IsInf(s.Scale, 0) {
		return fmt.Errorf("%w: scale %v", manip.ErrInvalidParameter, s.Scale)
	}
	if s.Alpha < 0 || s.Alpha > 1 || math.IsNaN(s.Alpha) {
		return fmt.Errorf("%w: alpha %v", manip.ErrInvalidParameter, s.Alpha)
	}
	return nil
}

// Runner owns the fixed chain scale, horizontal flip, vertical flip, pupil
// render. Settings are read per frame, so updates from the control
// endpoints apply on the next frame without rebuilding the chain.
type Runner struct {
	mu       sync.RWMutex
	settings types.OverlaySettings
	pipeline manip.Pipeline
}

func NewRunner(getter manip.PupilGetter, initial types.OverlaySettings) (*Runner, error) {
	if err := ValidateSettings(initial); err != nil {
		return nil, err
	}
	r := &Runner{settings: initial}
	r.pipeline = manip.Pipeline{
		manip.Bind(manip.ScaleTransform{}, func() float64 { return r.Settings().Scale }),
		manip.Bind(manip.HorizontalFlip{}, func() bool { return r.Settings().FlipHorizontal }),
		manip.Bind(manip.VerticalFlip{}, func() bool { return r.Settings().FlipVertical }),
		manip.Bind(manip.NewPupilRenderer(getter), func() bool { return r.Settings().RenderPupil }),
	}
	return r, nil
}

func (r *Runner) Settings() types.OverlaySettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

func (r *Runner) SetSettings(s types.OverlaySettings) error {
	if err := ValidateSettings(s); err != nil {
		return err
	}
	r.mu.Lock()
	r.settings = s
	r.mu.Unlock()
	return nil
}

// Render runs the chain on one frame. The frame's own pixels survive
// untouched: the scale step always hands a fresh buffer to the steps that
// draw.
func (r *Runner) Render(frame *types.Frame) (*image.RGBA, error) {
	return r.pipeline.Run(frame.Pixels, manip.Context{IsFakeFrame: frame.Fake})
}
