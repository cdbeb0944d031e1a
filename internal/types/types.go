package types

import "image"

// Frame is one eye-camera image plus the IPC metadata it arrived with.
// Fake marks a synthesized placeholder emitted while the camera feed is
// interrupted; such frames carry valid geometry but no real pixels.
type Frame struct {
	Topic     string      `json:"topic"`
	EyeID     int         `json:"eye_id"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Index     int         `json:"index"`
	Timestamp float64     `json:"timestamp"`
	Format    string      `json:"format"`
	Fake      bool        `json:"fake"`
	Pixels    *image.RGBA `json:"-"`
}

// Ellipse is pupil-detector geometry: center in pixels, axes as full
// diameters in pixels, angle in degrees.
type Ellipse struct {
	Center [2]float64 `json:"center"`
	Axes   [2]float64 `json:"axes"`
	Angle  float64    `json:"angle"`
}

// Pupil2D is a 2D detector datum.
type Pupil2D struct {
	Topic      string  `json:"topic"`
	Method     string  `json:"method"`
	Ellipse    Ellipse `json:"ellipse"`
	Diameter   float64 `json:"diameter"`
	Confidence float64 `json:"confidence"`
	Timestamp  float64 `json:"timestamp"`
}

// Pupil3D is a model-based datum. Sphere is the projected eyeball outline
// in image coordinates, nil when the model has not converged.
type Pupil3D struct {
	Topic           string   `json:"topic"`
	Method          string   `json:"method"`
	Ellipse         Ellipse  `json:"ellipse"`
	Diameter3D      float64  `json:"diameter_3d"`
	Confidence      float64  `json:"confidence"`
	ModelConfidence float64  `json:"model_confidence"`
	Sphere          *Ellipse `json:"projected_sphere,omitempty"`
	Timestamp       float64  `json:"timestamp"`
}
