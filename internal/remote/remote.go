// Package remote talks to Pupil Remote, the REQ/REP control port Capture
// exposes on :50020 by default: one-shot commands plus a liveness poller.
package remote

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pebbe/zmq4"
)

// Request performs one command round-trip on a fresh REQ socket. Pupil
// Remote answers "t", "v" and the port queries with short strings. A
// fresh socket per call keeps the strict REQ/REP alternation from jamming
// after a lost reply.
func Request(addr, command string, timeout time.Duration) (string, error) {
	socket, err := zmq4.NewSocket(zmq4.REQ)
	if err != nil {
		return "", err
	}
	defer socket.Close()
	if err := socket.SetLinger(0); err != nil {
		return "", err
	}
	if err := socket.SetRcvtimeo(timeout); err != nil {
		return "", err
	}
	if err := socket.SetSndtimeo(timeout); err != nil {
		return "", err
	}
	if err := socket.Connect(addr); err != nil {
		return "", err
	}

	if _, err := socket.Send(command, 0); err != nil {
		return "", fmt.Errorf("send %q: %w", command, err)
	}
	reply, err := socket.Recv(0)
	if err != nil {
		return "", fmt.Errorf("no reply to %q: %w", command, err)
	}
	return strings.TrimSpace(reply), nil
}

// SubPort asks where the IPC backbone publishes subscriptions.
func SubPort(addr string, timeout time.Duration) (string, error) {
	port, err := Request(addr, "SUB_PORT", timeout)
	if err != nil {
		return "", err
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("sub port reply %q is not a port", port)
	}
	return port, nil
}

type Status struct {
	Alive   bool    `json:"alive"`
	Version string  `json:"version"`
	Clock   float64 `json:"clock"`
}

// Poll queries version and clock at interval and feeds every result to
// update, dead or alive, until ctx ends.
func Poll(ctx context.Context, addr string, interval time.Duration, update func(Status)) {
	if addr == "" || update == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		update(fetch(addr))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func fetch(addr string) Status {
	var status Status
	version, err := Request(addr, "v", 900*time.Millisecond)
	if err != nil {
		return status
	}
	status.Alive = true
	status.Version = version
	if clock, err := Request(addr, "t", 900*time.Millisecond); err == nil {
		if v, err := strconv.ParseFloat(clock, 64); err == nil {
			status.Clock = v
		}
	}
	return status
}
