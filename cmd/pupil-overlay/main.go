package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"net"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"pupil-overlay-go/internal/codec"
	"pupil-overlay-go/internal/config"
	"pupil-overlay-go/internal/ingest"
	"pupil-overlay-go/internal/manip"
	"pupil-overlay-go/internal/output"
	"pupil-overlay-go/internal/overlay"
	"pupil-overlay-go/internal/pupil"
	"pupil-overlay-go/internal/remote"
	"pupil-overlay-go/internal/server"
	"pupil-overlay-go/internal/simulator"
	"pupil-overlay-go/internal/types"
)

type metrics struct {
	framesReceived   atomic.Uint64
	fakesSubstituted atomic.Uint64
	framesRendered   atomic.Uint64
	renderErrors     atomic.Uint64
	framesBroadcast  atomic.Uint64
	encodeErrors     atomic.Uint64
	stillWriteOK     atomic.Uint64
	stillWriteErr    atomic.Uint64
	renderCount      atomic.Uint64
	renderNanos      atomic.Uint64
}

func (m *metrics) snapshot() map[string]any {
	return map[string]any{
		"frames_received_total":   m.framesReceived.Load(),
		"fakes_substituted_total": m.fakesSubstituted.Load(),
		"frames_rendered_total":   m.framesRendered.Load(),
		"render_errors_total":     m.renderErrors.Load(),
		"frames_broadcast_total":  m.framesBroadcast.Load(),
		"encode_errors_total":     m.encodeErrors.Load(),
		"still_write_ok_total":    m.stillWriteOK.Load(),
		"still_write_err_total":   m.stillWriteErr.Load(),
		"render_total":            m.renderCount.Load(),
		"render_nanos_total":      m.renderNanos.Load(),
	}
}

func main() {
	var (
		port           = flag.Int("port", 8080, "HTTP port for the viewer UI")
		remoteAddr     = flag.String("remote-addr", "", "Pupil Remote address (host:port); discovers the IPC ports when set")
		remoteInterval = flag.Duration("remote-interval", 2*time.Second, "Polling interval for Pupil Remote status")
		frameEndpoint  = flag.String("frame-endpoint", "tcp://127.0.0.1:50114", "ZMQ endpoint publishing eye frames")
		pupilEndpoint  = flag.String("pupil-endpoint", "", "ZMQ endpoint publishing pupil datums (frame endpoint when empty)")
		eyeID          = flag.Int("eye", 0, "Eye camera id to subscribe to")
		debug          = flag.Bool("debug", false, "Run with a simulated eye camera")
		debugFPS       = flag.Float64("debug-fps", 60, "Simulated camera frame rate")
		gapTimeout     = flag.Duration("gap-timeout", 500*time.Millisecond, "Substitute placeholder frames after this long without a real one")
		datumMaxAge    = flag.Duration("datum-max-age", 200*time.Millisecond, "Discard pupil datums older than this at render time")
		broadcastRate  = flag.Duration("broadcast", 40*time.Millisecond, "Minimum interval between frames pushed to clients")
		scale          = flag.Float64("scale", 1.0, "Initial scale factor")
		flipH          = flag.Bool("flip-horizontal", false, "Mirror frames left-right")
		flipV          = flag.Bool("flip-vertical", false, "Mirror frames top-bottom")
		renderPupil    = flag.Bool("render-pupil", true, "Draw the detected pupil on each frame")
		alpha          = flag.Float64("alpha", 1.0, "Frame opacity on the preview canvas")
		canvasSize     = flag.String("canvas", "", "Compose frames onto a WxH canvas before streaming")
		quality        = flag.Int("quality", 80, "JPEG quality for streamed and stored frames")
		outputDir      = flag.String("output-dir", "", "Write rendered stills to this directory")
		stillFormat    = flag.String("still-format", "jpeg", "Still format: png or jpeg")
		rawLog         = flag.Bool("raw-log", false, "Write raw IPC messages to disk")
		rawLogDir      = flag.String("raw-log-dir", "rawlog", "Directory for raw IPC logs")
		ingestLogEvery = flag.Int("ingest-log-every", 100, "Log every Nth ingest error")
		ingestFallback = flag.Bool("ingest-fallback", true, "Fall back to the simulator when ingest fails")
		logLevel       = flag.String("log-level", "info", "Log level: debug, info, warning, error")
		logJSON        = flag.Bool("log-json", false, "Log as JSON instead of text")
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

	frameEndpointValue := *frameEndpoint
	pupilEndpointValue := *pupilEndpoint
	if *remoteAddr != "" {
		host, _, err := net.SplitHostPort(*remoteAddr)
		if err != nil {
			logrus.Fatalf("invalid remote address %q: %v", *remoteAddr, err)
		}
		subPort, err := remote.SubPort(*remoteAddr, 2*time.Second)
		if err != nil {
			logrus.Warnf("pupil remote discovery failed: %v; using configured endpoints", err)
		} else {
			frameEndpointValue = fmt.Sprintf("tcp://%s:%s", host, subPort)
			pupilEndpointValue = frameEndpointValue
			logrus.Infof("discovered IPC backbone at %s", frameEndpointValue)
		}
	}
	if pupilEndpointValue == "" {
		pupilEndpointValue = frameEndpointValue
	}

	cfg := config.AppConfig{
		Port:           *port,
		FrameEndpoint:  frameEndpointValue,
		PupilEndpoint:  pupilEndpointValue,
		RemoteAddr:     *remoteAddr,
		EyeID:          *eyeID,
		Debug:          *debug,
		DebugFPS:       *debugFPS,
		GapTimeout:     *gapTimeout,
		DatumMaxAge:    *datumMaxAge,
		Broadcast:      *broadcastRate,
		OutputDir:      *outputDir,
		RecordRaw:      *rawLog,
		RawLogDir:      *rawLogDir,
		StillFormat:    *stillFormat,
		StillQuality:   *quality,
		IngestLogEvery: *ingestLogEvery,
		IngestFallback: *ingestFallback,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var canvas *overlay.Canvas
	var canvasBounds [2]int
	if *canvasSize != "" {
		var w, h int
		if _, err := fmt.Sscanf(*canvasSize, "%dx%d", &w, &h); err != nil || w < 1 || h < 1 {
			logrus.Fatalf("invalid canvas size %q, want WxH", *canvasSize)
		}
		canvas = overlay.NewCanvas(w, h)
		canvasBounds = [2]int{w, h}
	}

	var m metrics
	var statusMu sync.Mutex
	var lastFrameAt time.Time
	status := map[string]any{
		"source":     "live",
		"stream":     "idle",
		"last_frame": "",
		"last_push":  "",
	}

	var recorder ingest.RecordFunc
	if cfg.RecordRaw {
		writer, err := output.NewRawLogWriter(cfg.RawLogDir, "pupil_ipc")
		if err != nil {
			logrus.Fatalf("failed to start raw log: %v", err)
		}
		logrus.Infof("recording raw IPC messages to %s", writer.Path())
		recorder = func(parts [][]byte) {
			if err := writer.RecordMessage(parts); err != nil {
				logrus.Warnf("raw log write failed: %v", err)
			}
		}
		go func() {
			<-ctx.Done()
			if err := writer.Close(); err != nil {
				logrus.Warnf("raw log close failed: %v", err)
			}
		}()
	}

	var frames <-chan types.Frame
	var getter manip.PupilGetter
	datumsFn := func() uint64 { return 0 }

	if cfg.Debug {
		sim := simulator.New(simulator.Options{
			EyeID:        cfg.EyeID,
			FrameRate:    cfg.DebugFPS,
			DropoutEvery: 10 * time.Second,
		})
		frames = sim.Stream(ctx)
		getter = sim.Getter()
		datumsFn = m.framesReceived.Load
		status["source"] = "simulator"
	} else {
		sub := pupil.NewSubscriber()
		go func() {
			if err := sub.Run(ctx, cfg.PupilEndpoint, cfg.EyeID, pupil.SubscriberOptions{
				LogEvery: cfg.IngestLogEvery,
				Recorder: recorder,
			}); err != nil {
				logrus.Warnf("pupil subscription stopped: %v", err)
			}
		}()
		getter = sub.Getter(cfg.DatumMaxAge)
		datumsFn = sub.Received

		ch, err := ingest.Stream(ctx, cfg.FrameEndpoint, cfg.EyeID, ingest.Options{
			GapTimeout: cfg.GapTimeout,
			LogEvery:   cfg.IngestLogEvery,
			Recorder:   recorder,
		})
		if err != nil {
			if !cfg.IngestFallback {
				logrus.Fatalf("failed to start ingest: %v", err)
			}
			logrus.Warnf("failed to start ingest: %v; falling back to simulator", err)
			sim := simulator.New(simulator.Options{EyeID: cfg.EyeID, FrameRate: cfg.DebugFPS})
			frames = sim.Stream(ctx)
			getter = sim.Getter()
			datumsFn = m.framesReceived.Load
			status["source"] = "simulator"
		} else {
			frames = ch
		}
	}

	runner, err := overlay.NewRunner(getter, types.OverlaySettings{
		Scale:          *scale,
		FlipHorizontal: *flipH,
		FlipVertical:   *flipV,
		RenderPupil:    *renderPupil,
		Alpha:          *alpha,
	})
	if err != nil {
		logrus.Fatalf("invalid overlay settings: %v", err)
	}

	var stills *output.FrameWriter
	if cfg.OutputDir != "" {
		stills, err = output.NewFrameWriter(cfg.OutputDir, cfg.StillFormat, cfg.StillQuality)
		if err != nil {
			logrus.Fatalf("failed to start still writer: %v", err)
		}
	}

	logrus.Infof("starting viewer at http://localhost:%d", cfg.Port)

	uiMessages := make(chan any, 16)
	var latestMu sync.Mutex
	var latestJPEG []byte

	go func() {
		defer close(uiMessages)
		var lastPush time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-frames:
				if !ok {
					return
				}
				m.framesReceived.Add(1)
				if frame.Fake {
					m.fakesSubstituted.Add(1)
				}
				start := time.Now()
				rendered, err := runner.Render(&frame)
				m.renderCount.Add(1)
				m.renderNanos.Add(uint64(time.Since(start).Nanoseconds()))
				if err != nil {
					m.renderErrors.Add(1)
					logEveryRender(cfg.IngestLogEvery, frame.Index, err)
					continue
				}
				m.framesRendered.Add(1)
				statusMu.Lock()
				if !frame.Fake {
					status["stream"] = "receiving"
					status["last_frame"] = time.Now().Format(time.RFC3339)
					lastFrameAt = time.Now()
				}
				statusMu.Unlock()

				out := rendered
				if canvas != nil {
					s := runner.Settings()
					out = canvas.Compose(rendered, image.Pt(s.OriginX, s.OriginY), s.Alpha)
				}

				if stills != nil {
					if err := stills.WriteFrame(out, frame.Timestamp); err != nil {
						m.stillWriteErr.Add(1)
						logrus.Warnf("still write failed: %v", err)
					} else {
						m.stillWriteOK.Add(1)
					}
				}

				if time.Since(lastPush) < cfg.Broadcast {
					continue
				}
				payload, err := codec.EncodeJPEG(out, cfg.StillQuality)
				if err != nil {
					m.encodeErrors.Add(1)
					continue
				}
				latestMu.Lock()
				latestJPEG = payload
				latestMu.Unlock()
				select {
				case uiMessages <- payload:
					m.framesBroadcast.Add(1)
					lastPush = time.Now()
					statusMu.Lock()
					status["last_push"] = lastPush.Format(time.RFC3339)
					statusMu.Unlock()
				default:
				}
			}
		}
	}()

	statusMessage := func() map[string]any {
		statusMu.Lock()
		source := status["source"]
		stream := status["stream"]
		statusMu.Unlock()
		return map[string]any{
			"type":              "status",
			"source":            source,
			"stream":            stream,
			"eye_id":            cfg.EyeID,
			"frames_rendered":   m.framesRendered.Load(),
			"fakes_substituted": m.fakesSubstituted.Load(),
			"datums_received":   datumsFn(),
		}
	}

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				statusMu.Lock()
				if time.Since(lastFrameAt) > 2*time.Second {
					status["stream"] = "idle"
				}
				statusMu.Unlock()
				select {
				case uiMessages <- statusMessage():
				default:
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logrus.Infof("render stats: received=%d fake=%d rendered=%d render_errors=%d datums=%d",
					m.framesReceived.Load(),
					m.fakesSubstituted.Load(),
					m.framesRendered.Load(),
					m.renderErrors.Load(),
					datumsFn(),
				)
			}
		}
	}()

	if cfg.RemoteAddr != "" {
		go remote.Poll(ctx, cfg.RemoteAddr, *remoteInterval, func(update remote.Status) {
			statusMu.Lock()
			status["remote"] = update
			statusMu.Unlock()
		})
	}

	hooks := server.Hooks{
		Status: func() map[string]any {
			statusMu.Lock()
			copied := map[string]any{}
			for k, v := range status {
				copied[k] = v
			}
			statusMu.Unlock()
			payload := m.snapshot()
			payload["datums_received_total"] = datumsFn()
			copied["type"] = "status"
			copied["eye_id"] = cfg.EyeID
			copied["metrics"] = payload
			return copied
		},
		Snapshot: func() any {
			latestMu.Lock()
			defer latestMu.Unlock()
			if latestJPEG == nil {
				return nil
			}
			return latestJPEG
		},
		Config: func() any {
			statusMu.Lock()
			source, _ := status["source"].(string)
			statusMu.Unlock()
			preview := types.PreviewConfig{
				Type:     "config",
				EyeID:    cfg.EyeID,
				Source:   source,
				Settings: runner.Settings(),
			}
			if canvas != nil {
				preview.Canvas = canvasBounds
			}
			return preview
		},
		Settings: runner.Settings,
		ApplySettings: func(s types.OverlaySettings) error {
			if err := runner.SetSettings(s); err != nil {
				return err
			}
			select {
			case uiMessages <- map[string]any{"type": "settings", "settings": runner.Settings()}:
			default:
			}
			return nil
		},
	}

	if err := server.Run(ctx, cfg, uiMessages, hooks); err != nil {
		logrus.Infof("server stopped: %v", err)
	}

	if stills != nil {
		statusMu.Lock()
		source := status["source"]
		statusMu.Unlock()
		if err := stills.WriteManifest(map[string]any{
			"source": source,
			"eye_id": cfg.EyeID,
		}); err != nil {
			logrus.Warnf("manifest write failed: %v", err)
		}
	}
}

var renderLogCounter int

func logEveryRender(n int, index int, err error) {
	if n < 1 {
		n = 1
	}
	renderLogCounter++
	if renderLogCounter%n == 0 {
		logrus.Warnf("render failed for frame %d: %v", index, err)
	}
}
