package detector

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

func TestMockDetector(t *testing.T) {
	ctx := context.Background()
	d := NewMockDetector(Frame{Posture: gesture.PostureClosed, Centroid: gesture.Pt(1, 2)})
	d.Push(Frame{Posture: gesture.PostureOpen})

	f, err := d.Next(ctx)
	if err != nil || f.Centroid != gesture.Pt(1, 2) {
		t.Fatalf("Next() = %+v, %v", f, err)
	}
	if f, _ := d.Next(ctx); f.Posture != gesture.PostureOpen {
		t.Errorf("Next() posture = %v, want open", f.Posture)
	}
	if _, err := d.Next(ctx); !errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}

	boom := errors.New("camera unplugged")
	d.SetError(boom)
	if _, err := d.Next(ctx); !errors.Is(err, boom) {
		t.Errorf("Next() error = %v, want %v", err, boom)
	}

	d.Close()
	if _, err := d.Next(ctx); err == nil {
		t.Error("expected error after Close")
	}
}

func TestMockDetector_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewMockDetector(Frame{})
	if _, err := d.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestStroke(t *testing.T) {
	cfg := gesture.DefaultCaptureConfig()
	points := []gesture.Point{gesture.Pt(0, 0), gesture.Pt(10, 0), gesture.Pt(20, 0)}

	frames := Stroke(points, cfg)
	if want := cfg.ArmFrames + 1 + 2 + cfg.DisarmFrames; len(frames) != want {
		t.Fatalf("len(frames) = %d, want %d", len(frames), want)
	}

	// Feeding the frames arms, collects both moves, then releases.
	tr := gesture.NewTracker(cfg)
	for _, f := range frames {
		tr.Update(f.Posture, f.Centroid)
	}
	if tr.Accepted() != 2 || tr.State() != gesture.StateStop {
		t.Errorf("tracker accepted %d, state %v", tr.Accepted(), tr.State())
	}

	if Stroke(nil, cfg) != nil {
		t.Error("Stroke(nil) should be nil")
	}
}

func TestRecorderReplay(t *testing.T) {
	frames := Stroke([]gesture.Point{gesture.Pt(0, 0), gesture.Pt(10, 5)}, gesture.DefaultCaptureConfig())

	var buf bytes.Buffer
	rec := NewRecorder(&buf)
	for _, f := range frames {
		if err := rec.Write(f); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if !strings.Contains(buf.String(), `"posture":"closed"`) {
		t.Errorf("unexpected encoding: %s", buf.String())
	}

	d := NewReplayDetector(&buf)
	defer d.Close()
	for i, want := range frames {
		got, err := d.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() frame %d error = %v", i, err)
		}
		if got != want {
			t.Errorf("frame %d = %+v, want %+v", i, got, want)
		}
	}
	if _, err := d.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestReplayDetector_BadLine(t *testing.T) {
	d := NewReplayDetector(strings.NewReader("\n{\"posture\":\"closed\"}\n{\"posture\":\"fist\"}\n"))

	if _, err := d.Next(context.Background()); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	_, err := d.Next(context.Background())
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("Next() error = %v, want parse error on line 3", err)
	}
}

func TestReplayDetector_Realtime(t *testing.T) {
	input := `{"posture":"open","centroid":{"x":0,"y":0},"t":0}
{"posture":"open","centroid":{"x":0,"y":0},"t":30}
`
	d := NewReplayDetector(strings.NewReader(input), WithRealtime())

	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := d.Next(context.Background()); err != nil {
			t.Fatalf("Next() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 25ms", elapsed)
	}
}

func TestOpenReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.jsonl")
	if err := os.WriteFile(path, []byte(`{"posture":"closed","centroid":{"x":3,"y":4}}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := OpenReplay(path)
	if err != nil {
		t.Fatalf("OpenReplay() error = %v", err)
	}
	defer d.Close()

	f, err := d.Next(context.Background())
	if err != nil || f.Centroid != gesture.Pt(3, 4) {
		t.Errorf("Next() = %+v, %v", f, err)
	}

	if _, err := OpenReplay(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
