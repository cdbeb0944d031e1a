package pupil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
	"github.com/sirupsen/logrus"

	"pupil-overlay-go/internal/manip"
	"pupil-overlay-go/internal/types"
)

const recvTick = 250 * time.Millisecond

type SubscriberOptions struct {
	LogEvery int
	Recorder func(parts [][]byte)
}

// Subscriber caches the latest 2D and 3D datum from the Capture IPC. The
// cache swaps whole pointers, so values handed out stay immutable.
type Subscriber struct {
	mu       sync.RWMutex
	p2       *types.Pupil2D
	p2At     time.Time
	p3       *types.Pupil3D
	p3At     time.Time
	received atomic.Uint64
}

func NewSubscriber() *Subscriber {
	return &Subscriber{}
}

// Run subscribes to pupil.<eyeID> at endpoint and keeps the cache current
// until ctx ends. Setup failures return immediately; stream errors are
// logged at a limited rate and the loop keeps going.
func (s *Subscriber) Run(ctx context.Context, endpoint string, eyeID int, opts SubscriberOptions) error {
	if opts.LogEvery < 1 {
		opts.LogEvery = 1
	}

	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return err
	}
	defer socket.Close()
	if err := socket.Connect(endpoint); err != nil {
		return err
	}
	if err := socket.SetSubscribe(fmt.Sprintf("pupil.%d", eyeID)); err != nil {
		return err
	}
	if err := socket.SetRcvtimeo(recvTick); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		parts, err := socket.RecvMessageBytes(0)
		if err != nil {
			if zmq4.AsErrno(err) != zmq4.Errno(syscall.EAGAIN) {
				logEveryN(opts.LogEvery, "pupil recv error: %v", err)
			}
			continue
		}
		if opts.Recorder != nil {
			opts.Recorder(parts)
		}
		if len(parts) < 2 {
			logEveryN(opts.LogEvery, "pupil message has %d parts, want 2", len(parts))
			continue
		}
		p2, p3, err := DecodeDatum(string(parts[0]), parts[1])
		if err != nil {
			logEveryN(opts.LogEvery, "pupil datum error: %v", err)
			continue
		}
		s.store(p2, p3, time.Now())
		s.received.Add(1)
	}
}

// Received reports how many datums decoded successfully since start.
func (s *Subscriber) Received() uint64 {
	return s.received.Load()
}

func (s *Subscriber) store(p2 *types.Pupil2D, p3 *types.Pupil3D, at time.Time) {
	s.mu.Lock()
	if p2 != nil {
		s.p2, s.p2At = p2, at
	}
	if p3 != nil {
		s.p3, s.p3At = p3, at
	}
	s.mu.Unlock()
}

// Latest returns the cached detections no older than maxAge. maxAge 0
// disables the age check.
func (s *Subscriber) Latest(maxAge time.Duration) (*types.Pupil2D, *types.Pupil3D) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	p2, p3 := s.p2, s.p3
	if maxAge > 0 {
		if p2 != nil && now.Sub(s.p2At) > maxAge {
			p2 = nil
		}
		if p3 != nil && now.Sub(s.p3At) > maxAge {
			p3 = nil
		}
	}
	return p2, p3
}

// Getter adapts the cache to the renderer's injection point.
func (s *Subscriber) Getter(maxAge time.Duration) manip.PupilGetter {
	return func() (*types.Pupil2D, *types.Pupil3D) {
		return s.Latest(maxAge)
	}
}

var logCounter int

func logEveryN(n int, format string, args ...any) {
	logCounter++
	if logCounter%n == 0 {
		logrus.Warnf(format, args...)
	}
}
