package output

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const rawLogMagic = "PLRAW001"

// Oversized record headers are treated as corruption, not allocations.
const maxRecordSize = 1 << 26

var ErrBadMagic = errors.New("not a raw log file")

// rawMessage is the on-disk envelope for one multipart IPC message.
type rawMessage struct {
	Topic string   `cbor:"topic"`
	Parts [][]byte `cbor:"parts"`
}

// PackMessage wraps one multipart IPC message for the raw log. The first
// part is the topic frame.
func PackMessage(parts [][]byte) ([]byte, error) {
	if len(parts) == 0 {
		return nil, errors.New("empty message")
	}
	return cbor.Marshal(rawMessage{Topic: string(parts[0]), Parts: parts[1:]})
}

// UnpackMessage reverses PackMessage: the topic plus the payload parts
// that followed it.
func UnpackMessage(payload []byte) (string, [][]byte, error) {
	var msg rawMessage
	if err := cbor.Unmarshal(payload, &msg); err != nil {
		return "", nil, err
	}
	return msg.Topic, msg.Parts, nil
}

type RawLogWriter struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

func NewRawLogWriter(outputDir string, prefix string) (*RawLogWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.bin", timestamp, prefix))
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriterSize(f, 1024*1024)
	if _, err := w.WriteString(rawLogMagic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &RawLogWriter{
		f:    f,
		w:    w,
		path: filename,
	}, nil
}

func (r *RawLogWriter) Path() string {
	return r.path
}

// Record appends one payload stamped with the receive time.
func (r *RawLogWriter) Record(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return fmt.Errorf("raw log writer is closed")
	}
	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	if _, err := r.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := r.w.Write(payload); err != nil {
		return err
	}
	return r.w.Flush()
}

// RecordMessage packs and appends one multipart IPC message.
func (r *RawLogWriter) RecordMessage(parts [][]byte) error {
	payload, err := PackMessage(parts)
	if err != nil {
		return err
	}
	return r.Record(payload)
}

func (r *RawLogWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		_ = r.f.Close()
		r.w = nil
		return err
	}
	err := r.f.Close()
	r.w = nil
	return err
}

type RawLogRecord struct {
	Timestamp time.Time
	Payload   []byte
}

// RawLogReader walks a raw log sequentially.
type RawLogReader struct {
	f *os.File
	r *bufio.Reader
}

func OpenRawLog(path string) (*RawLogReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := bufio.NewReaderSize(f, 1024*1024)
	magic := make([]byte, len(rawLogMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if string(magic) != rawLogMagic {
		_ = f.Close()
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, string(magic))
	}
	return &RawLogReader{f: f, r: r}, nil
}

// Next returns the following record, io.EOF at the end. A record cut off
// mid-write ends the stream cleanly.
func (r *RawLogReader) Next() (RawLogRecord, error) {
	var header [12]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return RawLogRecord{}, io.EOF
		}
		return RawLogRecord{}, err
	}
	ts := int64(binary.LittleEndian.Uint64(header[:8]))
	size := binary.LittleEndian.Uint32(header[8:12])
	if size > maxRecordSize {
		return RawLogRecord{}, fmt.Errorf("record size %d exceeds limit", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return RawLogRecord{}, io.EOF
		}
		return RawLogRecord{}, err
	}
	return RawLogRecord{Timestamp: time.Unix(0, ts), Payload: payload}, nil
}

func (r *RawLogReader) Close() error {
	return r.f.Close()
}
