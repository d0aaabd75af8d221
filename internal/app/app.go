// Package app wires frame sources, gesture capture and classification
// together for the Mudra gesture recognition system.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hmm"
	"github.com/ayusman/mudra/internal/observe"
)

// Config holds configuration options for the application.
type Config struct {
	Capture    gesture.CaptureConfig
	Recognizer *Recognizer
	Metrics    *observe.Metrics
	Logger     *slog.Logger
}

// Result is a finished capture attempt and its classification.
type Result struct {
	// Trajectory is the captured point sequence after trimming.
	Trajectory []gesture.Point `json:"trajectory"`
	// Match is the classification outcome.
	Match gesture.Match `json:"-"`
	// Bank is the source of the bank that produced Match.
	Bank string `json:"bank,omitempty"`
	// Timestamp is the frame time that completed the attempt.
	Timestamp int64 `json:"t"`
}

// Listener receives classification results.
type Listener interface {
	OnGesture(ctx context.Context, r Result)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, r Result)

// OnGesture calls f.
func (f ListenerFunc) OnGesture(ctx context.Context, r Result) {
	f(ctx, r)
}

// App owns one capture state machine and classifies every trajectory it
// produces. ProcessFrame and Run must be called from a single goroutine.
type App struct {
	config  Config
	tracker *gesture.Tracker
	metrics *observe.Metrics
	logger  *slog.Logger

	mu        sync.RWMutex
	enabled   bool
	listeners []Listener
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.Recognizer == nil {
		config.Recognizer = NewRecognizer(hmm.DefaultScorePolicy())
	}
	if config.Metrics == nil {
		config.Metrics = observe.Discard()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &App{
		config:  config,
		tracker: gesture.NewTracker(config.Capture),
		metrics: config.Metrics,
		logger:  config.Logger,
		enabled: true,
	}
}

// SetEnabled enables or disables gesture detection.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// AddListener registers l for every classification result.
func (a *App) AddListener(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Recognizer returns the recognizer the app classifies against.
func (a *App) Recognizer() *Recognizer {
	return a.config.Recognizer
}

// State returns the capture state.
func (a *App) State() gesture.State {
	return a.tracker.State()
}

// LastEvent returns what the most recent frame did to capture.
func (a *App) LastEvent() gesture.Event {
	return a.tracker.LastEvent()
}

// ProcessFrame feeds one frame to capture. When the frame completes a
// gesture it classifies the trajectory, notifies listeners and returns the
// result with ok set.
func (a *App) ProcessFrame(ctx context.Context, f detector.Frame) (r Result, ok bool) {
	if !a.IsEnabled() {
		return Result{}, false
	}

	a.metrics.RecordFrame(ctx, f.Posture.String())
	ready := a.tracker.Update(f.Posture, f.Centroid)

	switch a.tracker.LastEvent() {
	case gesture.EventStarted:
		a.logger.Debug("capture started", "at", f.Centroid)
	case gesture.EventArmed:
		a.logger.Debug("capture armed", "anchor", f.Centroid)
	case gesture.EventAccepted:
		a.metrics.RecordPoint(ctx, "accepted")
	case gesture.EventRejected:
		a.metrics.RecordPoint(ctx, "rejected")
	case gesture.EventAborted:
		a.metrics.RecordAttempt(ctx, "aborted")
		a.logger.Debug("capture aborted", "points", a.tracker.Accepted())
	case gesture.EventReady:
		a.metrics.RecordAttempt(ctx, "ready")
	}
	if !ready {
		return Result{}, false
	}

	r = Result{
		Trajectory: a.tracker.Sequence().Points(),
		Timestamp:  f.Timestamp,
	}
	r.Match, r.Bank = a.classify(ctx, r.Trajectory)

	a.mu.RLock()
	listeners := a.listeners
	a.mu.RUnlock()
	for _, l := range listeners {
		l.OnGesture(ctx, r)
	}
	return r, true
}

// classify scores a trajectory against the active bank and returns the
// bank's source with the match.
func (a *App) classify(ctx context.Context, points []gesture.Point) (gesture.Match, string) {
	m, source := a.config.Recognizer.Active()
	if m == nil {
		a.logger.Warn("gesture captured but no model bank is loaded", "points", len(points))
		return gesture.Match{Class: hmm.NoMatch}, ""
	}

	start := time.Now()
	match := m.Match(points)
	a.metrics.RecordClassification(ctx, match.Name, match.Matched(), time.Since(start))

	if match.Matched() {
		a.logger.Info("gesture recognized",
			"class", match.Class,
			"name", match.Name,
			"score", match.Score,
			"points", len(points),
		)
	} else {
		a.logger.Info("gesture not recognized", "points", len(points))
	}
	return match, source
}
