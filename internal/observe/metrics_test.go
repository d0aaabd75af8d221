package observe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterValue sums the data points of an Int64 sum matching attr.
func counterValue(t *testing.T, m *metricdata.Metrics, attr attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			total += dp.Value
		}
	}
	return total
}

func TestRecordCapture(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFrame(ctx, "closed")
	m.RecordFrame(ctx, "closed")
	m.RecordFrame(ctx, "open")
	m.RecordPoint(ctx, "accepted")
	m.RecordPoint(ctx, "rejected")
	m.RecordPoint(ctx, "accepted")
	m.RecordAttempt(ctx, "ready")

	rm := collect(t, reader)

	tests := []struct {
		metric string
		attr   attribute.KeyValue
		want   int64
	}{
		{"mudra.frames", attribute.String("posture", "closed"), 2},
		{"mudra.frames", attribute.String("posture", "open"), 1},
		{"mudra.capture.points", attribute.String("outcome", "accepted"), 2},
		{"mudra.capture.points", attribute.String("outcome", "rejected"), 1},
		{"mudra.capture.attempts", attribute.String("outcome", "ready"), 1},
	}
	for _, tt := range tests {
		got := findMetric(rm, tt.metric)
		if got == nil {
			t.Fatalf("metric %s not found", tt.metric)
		}
		if v := counterValue(t, got, tt.attr); v != tt.want {
			t.Errorf("%s{%s} = %d, want %d", tt.metric, tt.attr.Value.Emit(), v, tt.want)
		}
	}
}

func TestRecordClassification(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordClassification(ctx, "circle", true, 2*time.Millisecond)
	m.RecordClassification(ctx, "", false, time.Millisecond)

	rm := collect(t, reader)

	c := findMetric(rm, "mudra.classifications")
	if c == nil {
		t.Fatal("mudra.classifications not found")
	}
	if v := counterValue(t, c, attribute.String("outcome", "match")); v != 1 {
		t.Errorf("match count = %d, want 1", v)
	}
	if v := counterValue(t, c, attribute.String("outcome", "no_match")); v != 1 {
		t.Errorf("no_match count = %d, want 1", v)
	}

	h := findMetric(rm, "mudra.classify.duration")
	if h == nil {
		t.Fatal("mudra.classify.duration not found")
	}
	hist, ok := h.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data is %T, want Histogram[float64]", h.Data)
	}
	if hist.DataPoints[0].Count != 2 {
		t.Errorf("count = %d, want 2", hist.DataPoints[0].Count)
	}
}

func TestRecordTraining(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordTraining(context.Background(), "swipe", 4, 150*time.Millisecond)

	rm := collect(t, reader)
	h := findMetric(rm, "mudra.training.iterations")
	if h == nil {
		t.Fatal("mudra.training.iterations not found")
	}
	hist, ok := h.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("data is %T, want Histogram[int64]", h.Data)
	}
	if hist.DataPoints[0].Sum != 4 {
		t.Errorf("sum = %d, want 4", hist.DataPoints[0].Sum)
	}
}

func TestDiscard(t *testing.T) {
	m := Discard()
	m.RecordFrame(context.Background(), "open")
	m.RecordClassification(context.Background(), "x", true, time.Millisecond)
}

func TestMiddleware(t *testing.T) {
	m, reader := newTestMetrics(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := Middleware(m, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}

	rm := collect(t, reader)
	if findMetric(rm, "mudra.http.request.duration") == nil {
		t.Error("mudra.http.request.duration not recorded")
	}
}
