// Package detector provides the frame sources that feed gesture capture.
// A source yields one hand posture and centroid per frame; pixel
// segmentation and posture classification happen upstream of it.
package detector

import (
	"context"

	"github.com/ayusman/mudra/internal/gesture"
)

// Frame is one observation of the tracked hand.
type Frame struct {
	// Posture is the hand pose label.
	Posture gesture.Posture `json:"posture"`
	// Centroid is the hand centroid in pixels.
	Centroid gesture.Point `json:"centroid"`
	// Timestamp is the capture time in milliseconds.
	Timestamp int64 `json:"t,omitempty"`
}

// Detector defines the interface for frame sources.
type Detector interface {
	// Next blocks until the next frame is available. It returns io.EOF when
	// the source is exhausted.
	Next(ctx context.Context) (Frame, error)

	// Close releases any resources held by the detector.
	Close() error
}
