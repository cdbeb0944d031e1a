// Package ingest subscribes to a Pupil Capture frame publisher and turns
// its eye-camera messages into decoded frames. When the feed goes silent
// it substitutes placeholder frames so the downstream pipeline keeps its
// cadence through signal loss.
package ingest

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"
	"github.com/sirupsen/logrus"

	"pupil-overlay-go/internal/codec"
	"pupil-overlay-go/internal/types"
)

// Placeholder luminance for substituted frames.
const fakeGray = 128

const recvTick = 250 * time.Millisecond

// RecordFunc sees every raw multipart message before decoding. It must not
// retain the parts past the call.
type RecordFunc func(parts [][]byte)

type Options struct {
	// GapTimeout is how long the feed may stay silent before placeholder
	// frames are substituted, one per elapsed timeout. 0 disables them.
	GapTimeout time.Duration
	LogEvery   int
	Recorder   RecordFunc
	Buffer     int
}

// Stream subscribes to frame.eye.<eyeID> at endpoint and returns a channel
// of decoded frames. The goroutine owns the channel and closes it when ctx
// ends. Messages that fail to decode are dropped with rate-limited logging.
func Stream(ctx context.Context, endpoint string, eyeID int, opts Options) (<-chan types.Frame, error) {
	if opts.LogEvery < 1 {
		opts.LogEvery = 1
	}
	if opts.Buffer < 1 {
		opts.Buffer = 128
	}

	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetSubscribe(fmt.Sprintf("frame.eye.%d", eyeID)); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetRcvtimeo(recvTick); err != nil {
		_ = socket.Close()
		return nil, err
	}

	out := make(chan types.Frame, opts.Buffer)
	go func() {
		defer close(out)
		defer socket.Close()

		var last types.Frame
		var lastReal time.Time
		var lastEmit time.Time
		var fakePixels *image.RGBA

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			parts, err := socket.RecvMessageBytes(0)
			now := time.Now()
			if err != nil {
				if zmq4.AsErrno(err) != zmq4.Errno(syscall.EAGAIN) {
					logEveryN(opts.LogEvery, "ingest recv error: %v", err)
					continue
				}
				if opts.GapTimeout <= 0 || last.Pixels == nil || now.Sub(lastEmit) < opts.GapTimeout {
					continue
				}
				if fakePixels == nil || fakePixels.Bounds() != last.Pixels.Bounds() {
					fakePixels = grayRGBA(last.Width, last.Height)
				}
				fake := types.Frame{
					Topic:     last.Topic,
					EyeID:     last.EyeID,
					Width:     last.Width,
					Height:    last.Height,
					Index:     last.Index,
					Timestamp: last.Timestamp + now.Sub(lastReal).Seconds(),
					Format:    last.Format,
					Fake:      true,
					Pixels:    fakePixels,
				}
				select {
				case <-ctx.Done():
					return
				case out <- fake:
					lastEmit = now
				}
				continue
			}

			if opts.Recorder != nil {
				opts.Recorder(parts)
			}
			frame, ok := DecodeFrame(parts, eyeID, opts.LogEvery)
			if !ok {
				continue
			}
			last = frame
			lastReal = now
			lastEmit = now

			select {
			case <-ctx.Done():
				return
			case out <- frame:
			}
		}
	}()

	return out, nil
}

// DecodeFrame turns one multipart frame message into a Frame. Failures
// are logged at a limited rate and reported as ok false, which keeps a
// stream alive across malformed messages.
func DecodeFrame(parts [][]byte, eyeID int, logEvery int) (types.Frame, bool) {
	if len(parts) < 3 {
		logEveryN(logEvery, "ingest message has %d parts, want 3", len(parts))
		return types.Frame{}, false
	}

	var payload map[string]any
	if err := cbor.Unmarshal(parts[1], &payload); err != nil {
		logEveryN(logEvery, "ingest payload decode error: %v", err)
		return types.Frame{}, false
	}

	format, _ := payload["format"].(string)
	width, err := toInt(payload["width"])
	if err != nil {
		logEveryN(logEvery, "ingest invalid width: %v", err)
		return types.Frame{}, false
	}
	height, err := toInt(payload["height"])
	if err != nil {
		logEveryN(logEvery, "ingest invalid height: %v", err)
		return types.Frame{}, false
	}
	index, err := toInt(payload["index"])
	if err != nil {
		logEveryN(logEvery, "ingest invalid index: %v", err)
		return types.Frame{}, false
	}
	timestamp, err := toFloat(payload["timestamp"])
	if err != nil {
		logEveryN(logEvery, "ingest invalid timestamp: %v", err)
		return types.Frame{}, false
	}

	img, err := codec.Decode(parts[2], format, width, height)
	if err != nil {
		logEveryN(logEvery, "ingest pixel decode error: %v", err)
		return types.Frame{}, false
	}

	return types.Frame{
		Topic:     string(parts[0]),
		EyeID:     eyeID,
		Width:     width,
		Height:    height,
		Index:     index,
		Timestamp: timestamp,
		Format:    format,
		Pixels:    img,
	}, true
}

func grayRGBA(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	gray := color.RGBA{R: fakeGray, G: fakeGray, B: fakeGray, A: 255}
	draw.Draw(img, img.Bounds(), image.NewUniform(gray), image.Point{}, draw.Src)
	return img
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unsupported int type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unsupported float type %T", v)
	}
}

var logCounter int

func logEveryN(n int, format string, args ...any) {
	logCounter++
	if logCounter%n == 0 {
		logrus.Warnf(format, args...)
	}
}
