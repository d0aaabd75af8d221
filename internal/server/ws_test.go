package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hmm"
)

func dialFrames(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/frames"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func TestFramesHandler(t *testing.T) {
	srv, s := newTestServer(t)

	opts := gesture.DefaultTrainOptions()
	opts.Seed = 5
	bank, _, err := gesture.NewTrainer(opts, quietLogger()).TrainBank(t.Context(), []*gesture.Prototype{
		{Name: "ell", States: 2, Points: ell},
		{Name: "hook", States: 2, Points: hook},
	})
	if err != nil {
		t.Fatalf("TrainBank() error = %v", err)
	}
	srv.config.Recognizer.Set(bank, []string{"ell", "hook"}, "ws-test")

	ts := httptest.NewServer(srv)
	defer ts.Close()
	conn := dialFrames(t, ts)

	cfg := gesture.DefaultCaptureConfig()
	for _, f := range detector.Stroke(hook, cfg) {
		if err := conn.WriteJSON(f); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
	}

	state := readUntil(t, conn, "state")
	if state.Event != gesture.EventStarted.String() {
		t.Errorf("first state event = %q, want %q", state.Event, gesture.EventStarted)
	}

	msg := readUntil(t, conn, "gesture")
	if msg.Matched == nil || !*msg.Matched || msg.Name != "hook" {
		t.Errorf("gesture message = %+v", msg)
	}
	if want := len(hook) - 1 - cfg.TrimPoints; len(msg.Trajectory) != want {
		t.Errorf("trajectory has %d points, want %d", len(msg.Trajectory), want)
	}
	if msg.Score == nil {
		t.Error("matched gesture should carry a score")
	}

	// The result is recorded against the active bank.
	deadline := time.Now().Add(2 * time.Second)
	for {
		recs, err := s.Recognitions().List(0)
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) == 1 {
			if recs[0].BankID != "ws-test" || recs[0].Name != "hook" {
				t.Errorf("recorded %+v", recs[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("recorded %d recognitions, want 1", len(recs))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFramesHandler_InvalidFrame(t *testing.T) {
	srv := New(Config{Logger: quietLogger()})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	conn := dialFrames(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"posture":"fist"}`)); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, conn, "error")
	if !strings.Contains(msg.Error, "invalid frame") {
		t.Errorf("error message = %q", msg.Error)
	}
}

func TestFramesHandler_NoBank(t *testing.T) {
	handler := NewFramesHandler(FramesConfig{
		Capture:    gesture.DefaultCaptureConfig(),
		Recognizer: app.NewRecognizer(hmm.DefaultScorePolicy()),
		Logger:     quietLogger(),
	})
	ts := httptest.NewServer(handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	for _, f := range detector.Stroke(ell, gesture.DefaultCaptureConfig()) {
		conn.WriteJSON(f)
	}

	msg := readUntil(t, conn, "gesture")
	if msg.Matched == nil || *msg.Matched || msg.Score != nil {
		t.Errorf("gesture message = %+v, want unmatched without score", msg)
	}
	if msg.Class == nil || *msg.Class != hmm.NoMatch {
		t.Errorf("class = %v, want %d", msg.Class, hmm.NoMatch)
	}
}
