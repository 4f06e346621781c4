package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/holtholcomb/tvstream/internal/logging"
	"go.uber.org/zap"
)

// Direction of a captured payload.
type Direction string

const (
	DirectionInbound  Direction = "server->client"
	DirectionOutbound Direction = "client->server"
)

// Record is one captured payload. Captures are JSON Lines files, one Record
// per line.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	Seq        int       `json:"seq"`
	RemoteAddr string    `json:"remote_addr"`
	Direction  Direction `json:"direction"`
	PayloadLen int       `json:"payload_length"`
	Payload    string    `json:"payload"`
}

// Recorder appends Records to a writer. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	seq    int
	now    func() time.Time
}

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	r := &Recorder{w: w, now: time.Now}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r
}

// OpenRecorder creates capture-<timestamp>.jsonl in dir and returns a
// Recorder appending to it, together with the file path.
func OpenRecorder(dir string) (*Recorder, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create capture directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl",
		time.Now().Format("20060102-150405")))

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open capture file: %w", err)
	}

	logging.Info("Capturing payloads", zap.String("filename", filename))
	return NewRecorder(f), filename, nil
}

// Record appends one payload.
func (r *Recorder) Record(remoteAddr string, direction Direction, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	rec := Record{
		Timestamp:  r.now(),
		Seq:        r.seq,
		RemoteAddr: remoteAddr,
		Direction:  direction,
		PayloadLen: len(payload),
		Payload:    string(payload),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal capture record: %w", err)
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	return nil
}

// Close closes the underlying writer if it is closable.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadCapture reads every Record from a capture stream. Blank lines are
// skipped.
func ReadCapture(rd io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var records []Record
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse capture line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	return records, nil
}
