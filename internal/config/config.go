package config

import "time"

type AppConfig struct {
	Port          int
	FrameEndpoint string
	PupilEndpoint string
	RemoteAddr    string
	EyeID         int
	Debug         bool
	DebugFPS      float64
	GapTimeout    time.Duration
	DatumMaxAge   time.Duration
	Broadcast     time.Duration
	OutputDir     string
	RecordRaw     bool
	RawLogDir     string
	StillFormat   string
	StillQuality  int
	IngestLogEvery int
	IngestFallback bool
}
