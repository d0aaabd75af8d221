package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hmm"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func polyline(steps int, dirs ...gesture.Point) []gesture.Point {
	pts := []gesture.Point{gesture.Pt(200, 200)}
	for _, d := range dirs {
		for i := 0; i < steps; i++ {
			last := pts[len(pts)-1]
			pts = append(pts, gesture.Pt(last.X+d.X, last.Y+d.Y))
		}
	}
	return pts
}

var (
	ell  = polyline(8, gesture.Pt(30, 0), gesture.Pt(0, 30))
	hook = polyline(8, gesture.Pt(0, -30), gesture.Pt(30, 0))
)

func newServer(t *testing.T, s *store.Store, r *app.Recognizer) *httptest.Server {
	t.Helper()

	opts := gesture.DefaultTrainOptions()
	opts.Seed = 17
	srv := server.New(server.Config{
		Store:      s,
		Recognizer: r,
		Trainer:    gesture.NewTrainer(opts, quietLogger()),
		Logger:     quietLogger(),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	dbPath := filepath.Join(t.TempDir(), "data.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	recognizer := app.NewRecognizer(hmm.DefaultScorePolicy())
	ts := newServer(t, s, recognizer)
	client := ts.Client()

	t.Run("CreateGestures", func(t *testing.T) {
		for _, g := range []struct {
			name   string
			points []gesture.Point
		}{{"ell", ell}, {"hook", hook}} {
			body, _ := json.Marshal(map[string]any{"name": g.name, "states": 2})
			resp, err := client.Post(ts.URL+"/api/gestures", "application/json", bytes.NewReader(body))
			if err != nil {
				t.Fatalf("create gesture error = %v", err)
			}
			var created struct {
				ID string `json:"id"`
			}
			json.NewDecoder(resp.Body).Decode(&created)
			resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
			}

			// Upload the prototype in its YAML file form.
			var doc bytes.Buffer
			if err := gesture.WritePrototype(&doc, &gesture.Prototype{Name: g.name, States: 2, Points: g.points}); err != nil {
				t.Fatal(err)
			}
			req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/gestures/"+created.ID+"/points", &doc)
			req.Header.Set("Content-Type", "application/yaml")
			resp, err = client.Do(req)
			if err != nil {
				t.Fatalf("put points error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("put points status = %d, want %d", resp.StatusCode, http.StatusOK)
			}
		}
	})

	var bankID string
	t.Run("TrainBank", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/banks", "application/json", nil)
		if err != nil {
			t.Fatalf("train error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}

		var trained struct {
			Bank struct {
				ID    string   `json:"id"`
				Names []string `json:"names"`
			} `json:"bank"`
		}
		json.NewDecoder(resp.Body).Decode(&trained)
		bankID = trained.Bank.ID
		if len(trained.Bank.Names) != 2 || trained.Bank.Names[0] != "ell" {
			t.Errorf("bank names = %v, want [ell hook]", trained.Bank.Names)
		}
		if recognizer.Source() != bankID {
			t.Errorf("active bank = %q, want %q", recognizer.Source(), bankID)
		}
	})

	t.Run("StreamFrames", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/frames"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		defer conn.Close()

		for _, f := range detector.Stroke(ell, gesture.DefaultCaptureConfig()) {
			if err := conn.WriteJSON(f); err != nil {
				t.Fatalf("WriteJSON() error = %v", err)
			}
		}

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			var msg struct {
				Type    string `json:"type"`
				Matched *bool  `json:"matched"`
				Name    string `json:"name"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("ReadJSON() error = %v", err)
			}
			if msg.Type != "gesture" {
				continue
			}
			if msg.Matched == nil || !*msg.Matched || msg.Name != "ell" {
				t.Errorf("gesture message = %+v", msg)
			}
			break
		}
	})

	t.Run("History", func(t *testing.T) {
		// The websocket listener records asynchronously to the read above.
		deadline := time.Now().Add(2 * time.Second)
		for {
			recs, err := s.Recognitions().List(0)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(recs) == 1 {
				if recs[0].Name != "ell" || recs[0].BankID != bankID {
					t.Errorf("recognition = %+v", recs[0])
				}
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("got %d recognitions, want 1", len(recs))
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	t.Run("DownloadBankAndReplay", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/banks/" + bankID)
		if err != nil {
			t.Fatalf("get bank error = %v", err)
		}
		bank, err := hmm.ReadBank(resp.Body)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("ReadBank() error = %v", err)
		}

		offline := app.NewRecognizer(hmm.DefaultScorePolicy())
		offline.Set(bank, []string{"ell", "hook"}, "download")

		cfg := gesture.DefaultCaptureConfig()
		frames := append(detector.Stroke(hook, cfg), detector.Stroke(ell, cfg)...)
		a := app.New(app.Config{Capture: cfg, Recognizer: offline, Logger: quietLogger()})

		var names []string
		a.AddListener(app.ListenerFunc(func(_ context.Context, r app.Result) {
			names = append(names, r.Match.Name)
		}))
		if err := a.Run(context.Background(), detector.NewMockDetector(frames...)); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(names) != 2 || names[0] != "hook" || names[1] != "ell" {
			t.Errorf("replayed = %v, want [hook ell]", names)
		}
	})

	t.Run("ReopenRestoresLatestBank", func(t *testing.T) {
		s.Close()

		reopened, err := store.New(dbPath)
		if err != nil {
			t.Fatalf("store.New() error = %v", err)
		}
		defer reopened.Close()

		latest, err := reopened.Banks().Latest()
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if latest.ID != bankID {
			t.Errorf("Latest().ID = %q, want %q", latest.ID, bankID)
		}
		bank, err := latest.Models()
		if err != nil {
			t.Fatalf("Models() error = %v", err)
		}

		m := gesture.NewMatcher(bank, latest.Names, hmm.DefaultScorePolicy())
		if got := m.Match(hook); got.Name != "hook" {
			t.Errorf("Match(hook) = %+v", got)
		}
	})
}

func TestE2E_ClassifyWithoutBank(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	ts := newServer(t, s, app.NewRecognizer(hmm.DefaultScorePolicy()))

	body, _ := json.Marshal(map[string]any{"points": ell})
	resp, err := ts.Client().Post(ts.URL+"/api/classify", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("classify error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}

	resp, err = ts.Client().Post(ts.URL+"/api/banks", "application/json", nil)
	if err != nil {
		t.Fatalf("train error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("train with no gestures status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}
