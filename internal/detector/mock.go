package detector

import (
	"context"
	"io"
	"sync"

	"github.com/ayusman/mudra/internal/gesture"
)

// MockDetector is a test implementation of the Detector interface.
// It returns queued frames in order, then io.EOF.
type MockDetector struct {
	mu     sync.Mutex
	frames []Frame
	err    error
	closed bool
}

// NewMockDetector creates a new MockDetector holding frames.
func NewMockDetector(frames ...Frame) *MockDetector {
	return &MockDetector{frames: frames}
}

// Push appends frames to the queue.
func (m *MockDetector) Push(frames ...Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frames...)
}

// SetError sets the error that will be returned once the queue is drained.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Next returns the next queued frame.
func (m *MockDetector) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Frame{}, io.ErrClosedPipe
	}
	if len(m.frames) == 0 {
		if m.err != nil {
			return Frame{}, m.err
		}
		return Frame{}, io.EOF
	}
	f := m.frames[0]
	m.frames = m.frames[1:]
	return f, nil
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Stroke returns the frames of one complete gesture attempt: arming frames
// at the first point, a closed frame per point, then open frames to release.
func Stroke(points []gesture.Point, cfg gesture.CaptureConfig) []Frame {
	if len(points) == 0 {
		return nil
	}

	var frames []Frame
	// One frame leaves stop, ArmFrames more enter collection.
	for i := 0; i <= cfg.ArmFrames; i++ {
		frames = append(frames, Frame{Posture: gesture.PostureClosed, Centroid: points[0]})
	}
	for _, p := range points[1:] {
		frames = append(frames, Frame{Posture: gesture.PostureClosed, Centroid: p})
	}
	last := points[len(points)-1]
	for i := 0; i < cfg.DisarmFrames; i++ {
		frames = append(frames, Frame{Posture: gesture.PostureOpen, Centroid: last})
	}

	for i := range frames {
		frames[i].Timestamp = int64(i) * 33
	}
	return frames
}
