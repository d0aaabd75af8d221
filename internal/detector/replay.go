package detector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ReplayDetector reads frames recorded as JSON lines.
type ReplayDetector struct {
	scanner  *bufio.Scanner
	closer   io.Closer
	realtime bool
	line     int
	lastTS   int64
	started  bool
}

// ReplayOption configures a [ReplayDetector].
type ReplayOption func(*ReplayDetector)

// WithRealtime paces frames by their recorded timestamps.
func WithRealtime() ReplayOption {
	return func(d *ReplayDetector) {
		d.realtime = true
	}
}

// NewReplayDetector creates a ReplayDetector over r. If r is an
// io.Closer it is closed by Close.
func NewReplayDetector(r io.Reader, opts ...ReplayOption) *ReplayDetector {
	d := &ReplayDetector{scanner: bufio.NewScanner(r)}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OpenReplay opens a recording file.
func OpenReplay(path string, opts ...ReplayOption) (*ReplayDetector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	return NewReplayDetector(f, opts...), nil
}

// Next decodes the next frame. Blank lines are skipped.
func (d *ReplayDetector) Next(ctx context.Context) (Frame, error) {
	for d.scanner.Scan() {
		d.line++
		raw := d.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			return Frame{}, fmt.Errorf("failed to parse frame on line %d: %w", d.line, err)
		}

		if d.realtime && d.started && f.Timestamp > d.lastTS {
			select {
			case <-ctx.Done():
				return Frame{}, ctx.Err()
			case <-time.After(time.Duration(f.Timestamp-d.lastTS) * time.Millisecond):
			}
		}
		d.started = true
		d.lastTS = f.Timestamp

		return f, ctx.Err()
	}

	if err := d.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("failed to read recording: %w", err)
	}
	return Frame{}, io.EOF
}

// Close closes the underlying reader if it can be closed.
func (d *ReplayDetector) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Recorder writes frames as JSON lines readable by [ReplayDetector].
type Recorder struct {
	enc *json.Encoder
}

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: json.NewEncoder(w)}
}

// Write appends one frame.
func (r *Recorder) Write(f Frame) error {
	if err := r.enc.Encode(f); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
