// Package observe provides the OpenTelemetry metrics used across mudra and
// an HTTP middleware that records request latency.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed to
// Prometheus through [InitProvider]. Tests should use [NewMetrics] with their
// own [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all mudra metrics.
const meterName = "github.com/ayusman/mudra"

// Metrics holds all OpenTelemetry instruments. All fields are safe for
// concurrent use.
type Metrics struct {
	// Frames counts frames fed to capture. Use with attribute:
	//   attribute.String("posture", ...)
	Frames metric.Int64Counter

	// CapturePoints counts candidate points during collection. Use with attribute:
	//   attribute.String("outcome", "accepted"|"rejected")
	CapturePoints metric.Int64Counter

	// CaptureAttempts counts finished capture attempts. Use with attribute:
	//   attribute.String("outcome", "ready"|"aborted")
	CaptureAttempts metric.Int64Counter

	// Classifications counts classification passes. Use with attributes:
	//   attribute.String("outcome", "match"|"no_match"), attribute.String("gesture", ...)
	Classifications metric.Int64Counter

	// ClassifyDuration tracks the latency of one classification pass.
	ClassifyDuration metric.Float64Histogram

	// TrainingDuration tracks how long one class takes to train.
	TrainingDuration metric.Float64Histogram

	// TrainingIterations tracks Baum-Welch iterations per class.
	TrainingIterations metric.Int64Histogram

	// ActiveStreams tracks the number of open frame streams.
	ActiveStreams metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

var (
	classifyBuckets = []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05}
	trainingBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// NewMetrics creates a fully initialised [Metrics] using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.Frames, err = m.Int64Counter("mudra.frames",
		metric.WithDescription("Frames fed to gesture capture by posture."),
	); err != nil {
		return nil, err
	}
	if met.CapturePoints, err = m.Int64Counter("mudra.capture.points",
		metric.WithDescription("Candidate trajectory points by outcome."),
	); err != nil {
		return nil, err
	}
	if met.CaptureAttempts, err = m.Int64Counter("mudra.capture.attempts",
		metric.WithDescription("Finished capture attempts by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Classifications, err = m.Int64Counter("mudra.classifications",
		metric.WithDescription("Classification passes by outcome and gesture."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.ClassifyDuration, err = m.Float64Histogram("mudra.classify.duration",
		metric.WithDescription("Latency of scoring a trajectory against the model bank."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(classifyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TrainingDuration, err = m.Float64Histogram("mudra.training.duration",
		metric.WithDescription("Time to train one gesture model."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(trainingBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TrainingIterations, err = m.Int64Histogram("mudra.training.iterations",
		metric.WithDescription("Baum-Welch iterations per trained model."),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 8, 10, 20),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.ActiveStreams, err = m.Int64UpDownCounter("mudra.active_streams",
		metric.WithDescription("Number of open frame streams."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("mudra.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call from [otel.GetMeterProvider].
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Discard returns a [Metrics] whose instruments record nothing.
func Discard() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: failed to create noop metrics: " + err.Error())
	}
	return m
}

// RecordFrame counts one frame with the given posture.
func (m *Metrics) RecordFrame(ctx context.Context, posture string) {
	m.Frames.Add(ctx, 1, metric.WithAttributes(attribute.String("posture", posture)))
}

// RecordPoint counts one candidate point.
func (m *Metrics) RecordPoint(ctx context.Context, outcome string) {
	m.CapturePoints.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordAttempt counts one finished capture attempt.
func (m *Metrics) RecordAttempt(ctx context.Context, outcome string) {
	m.CaptureAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordClassification counts one classification pass and records its latency.
func (m *Metrics) RecordClassification(ctx context.Context, gesture string, matched bool, d time.Duration) {
	outcome := "no_match"
	if matched {
		outcome = "match"
	}
	m.Classifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("gesture", gesture),
	))
	m.ClassifyDuration.Record(ctx, d.Seconds())
}

// RecordTraining records the cost of training one class.
func (m *Metrics) RecordTraining(ctx context.Context, gesture string, iterations int, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("gesture", gesture))
	m.TrainingDuration.Record(ctx, d.Seconds(), attrs)
	m.TrainingIterations.Record(ctx, int64(iterations), attrs)
}
