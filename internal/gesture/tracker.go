package gesture

import (
	"errors"
	"fmt"
)

// State is a capture state.
type State int

const (
	// StateStop waits for a closed hand.
	StateStop State = iota
	// StateStart counts closed frames before collecting.
	StateStart
	// StateCollect appends centroid points until the hand opens.
	StateCollect
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateStop:
		return "stop"
	case StateStart:
		return "start"
	case StateCollect:
		return "collect"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event describes what the last Update did.
type Event int

const (
	// EventNone means the frame changed nothing observable.
	EventNone Event = iota
	// EventStarted means a closed hand began a new attempt.
	EventStarted
	// EventArmed means collection began.
	EventArmed
	// EventAccepted means a point was appended.
	EventAccepted
	// EventRejected means a point fell outside the distance window.
	EventRejected
	// EventReady means a finished trajectory is available.
	EventReady
	// EventAborted means the attempt ended with too few points.
	EventAborted
)

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventStarted:
		return "started"
	case EventArmed:
		return "armed"
	case EventAccepted:
		return "accepted"
	case EventRejected:
		return "rejected"
	case EventReady:
		return "ready"
	case EventAborted:
		return "aborted"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// CaptureConfig holds the capture thresholds.
type CaptureConfig struct {
	// ArmFrames is the number of consecutive closed frames needed to start collecting.
	ArmFrames int `yaml:"arm_frames"`
	// DisarmFrames is the number of consecutive non-closed frames that end an attempt.
	DisarmFrames int `yaml:"disarm_frames"`
	// MinDistance is the smallest accepted step in pixels.
	MinDistance float64 `yaml:"min_distance"`
	// MaxDistance is the largest accepted step in pixels.
	MaxDistance float64 `yaml:"max_distance"`
	// MinPoints is the number of accepted points required for a trajectory.
	MinPoints int `yaml:"min_points"`
	// TrimPoints is the number of trailing points dropped from a finished trajectory.
	TrimPoints int `yaml:"trim_points"`
}

// DefaultCaptureConfig returns a CaptureConfig with the standard thresholds.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		ArmFrames:    3,
		DisarmFrames: 3,
		MinDistance:  4,
		MaxDistance:  100,
		MinPoints:    10,
		TrimPoints:   5,
	}
}

// Validate checks that the thresholds are usable.
func (c CaptureConfig) Validate() error {
	var errs []error
	if c.ArmFrames < 1 {
		errs = append(errs, fmt.Errorf("arm_frames must be positive, got %d", c.ArmFrames))
	}
	if c.DisarmFrames < 1 {
		errs = append(errs, fmt.Errorf("disarm_frames must be positive, got %d", c.DisarmFrames))
	}
	if c.MinDistance < 0 || c.MaxDistance < c.MinDistance {
		errs = append(errs, fmt.Errorf("distance window [%v, %v] is invalid", c.MinDistance, c.MaxDistance))
	}
	if c.TrimPoints < 0 {
		errs = append(errs, fmt.Errorf("trim_points must not be negative, got %d", c.TrimPoints))
	}
	if c.MinPoints < c.TrimPoints {
		errs = append(errs, fmt.Errorf("min_points (%d) must be at least trim_points (%d)", c.MinPoints, c.TrimPoints))
	}
	return errors.Join(errs...)
}

// Tracker is the capture state machine. It consumes one posture and
// centroid per frame and reports when a finished trajectory is ready.
// A Tracker is not safe for concurrent use.
type Tracker struct {
	cfg CaptureConfig

	state  State
	seq    *Sequence
	prev   Point
	closed int
	missed int
	total  int
	last   Event
}

// NewTracker creates a Tracker in the stop state.
func NewTracker(cfg CaptureConfig) *Tracker {
	return &Tracker{
		cfg: cfg,
		seq: NewSequence(),
	}
}

// Update feeds one frame and reports whether a trajectory is ready. When it
// returns true, Sequence holds the finished trajectory until the next
// attempt starts.
func (t *Tracker) Update(posture Posture, centroid Point) bool {
	closed := posture == PostureClosed
	t.last = EventNone

	switch t.state {
	case StateStop:
		t.closed = 0
		if closed {
			t.state = StateStart
			t.seq = t.seq.Reset()
			t.total = 0
			t.missed = 0
			t.last = EventStarted
		}

	case StateStart:
		if !closed {
			t.closed = 0
			return false
		}
		t.closed++
		if t.closed >= t.cfg.ArmFrames {
			t.state = StateCollect
			t.closed = 0
			t.prev = centroid
			t.last = EventArmed
		}

	case StateCollect:
		if closed {
			d := centroid.Dist(t.prev)
			if d >= t.cfg.MinDistance && d <= t.cfg.MaxDistance {
				t.seq.Add(centroid)
				t.prev = centroid
				t.total++
				t.last = EventAccepted
			} else {
				t.last = EventRejected
			}
			t.missed = 0
			return false
		}

		t.missed++
		if t.missed < t.cfg.DisarmFrames {
			return false
		}

		t.state = StateStop
		if t.total >= t.cfg.MinPoints {
			t.seq.RemoveTail(t.cfg.TrimPoints)
			t.last = EventReady
			return true
		}
		t.last = EventAborted
	}

	return false
}

// State returns the current capture state.
func (t *Tracker) State() State {
	return t.state
}

// LastEvent returns what the most recent Update did.
func (t *Tracker) LastEvent() Event {
	return t.last
}

// Sequence returns the trajectory buffer.
func (t *Tracker) Sequence() *Sequence {
	return t.seq
}

// Accepted returns the number of points accepted in the current attempt.
func (t *Tracker) Accepted() int {
	return t.total
}
