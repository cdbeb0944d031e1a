package types

// OverlaySettings is the live-tunable part of the pipeline. Scale must be
// positive and finite; Alpha is the compositing opacity in [0,1].
type OverlaySettings struct {
	Scale          float64 `json:"scale"`
	FlipHorizontal bool    `json:"flip_horizontal"`
	FlipVertical   bool    `json:"flip_vertical"`
	RenderPupil    bool    `json:"render_pupil"`
	OriginX        int     `json:"origin_x"`
	OriginY        int     `json:"origin_y"`
	Alpha          float64 `json:"alpha"`
}

// PreviewConfig is pushed to the browser on connect so the viewer can label
// itself before the first frame arrives.
type PreviewConfig struct {
	Type     string          `json:"type"`
	EyeID    int             `json:"eye_id"`
	Source   string          `json:"source"`
	Canvas   [2]int          `json:"canvas"`
	Settings OverlaySettings `json:"settings"`
}
