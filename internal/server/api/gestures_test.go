package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// createGesture stores a gesture with the given trajectory.
func createGesture(t *testing.T, s *store.Store, id, name string, states int, points []gesture.Point) {
	t.Helper()

	if err := s.Gestures().Create(&store.Gesture{ID: id, Name: name, States: states}); err != nil {
		t.Fatalf("failed to create gesture: %v", err)
	}
	if len(points) > 0 {
		if err := s.Gestures().SetPoints(id, points); err != nil {
			t.Fatalf("failed to set points: %v", err)
		}
	}
}

func TestGestureHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s)

	createGesture(t, s, "test-gesture-1", "circle", 3, []gesture.Point{gesture.Pt(0, 0), gesture.Pt(5, 5)})

	req := httptest.NewRequest(http.MethodGet, "/api/gestures", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response listGesturesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Gestures) != 1 {
		t.Fatalf("expected 1 gesture, got %d", len(response.Gestures))
	}
	got := response.Gestures[0]
	if got.ID != "test-gesture-1" || got.States != 3 || got.Points != 2 {
		t.Errorf("unexpected gesture: %+v", got)
	}
}

func TestGestureHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s)

	body := `{"name": "swipe", "states": 2, "points": [{"x": 0, "y": 0}, {"x": 20, "y": 0}, {"x": 40, "y": 0}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/gestures", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var response gestureResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.ID == "" {
		t.Error("expected non-empty ID")
	}
	if response.Name != "swipe" || response.States != 2 || response.Points != 3 {
		t.Errorf("unexpected response: %+v", response)
	}

	// Verify the gesture and its points were stored
	points, err := s.Gestures().GetPoints(response.ID)
	if err != nil {
		t.Fatalf("failed to get stored points: %v", err)
	}
	if len(points) != 3 || points[2] != gesture.Pt(40, 0) {
		t.Errorf("stored points = %v", points)
	}
}

func TestGestureHandler_CreateDefaultsStates(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s)

	req := httptest.NewRequest(http.MethodPost, "/api/gestures", bytes.NewBufferString(`{"name": "tap"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var response gestureResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.States != gesture.DefaultStates {
		t.Errorf("States = %d, want %d", response.States, gesture.DefaultStates)
	}
}

func TestGestureHandler_CreateErrors(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s)
	createGesture(t, s, "g1", "circle", 1, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid JSON", `{invalid json}`, http.StatusBadRequest},
		{"missing name", `{"states": 2}`, http.StatusBadRequest},
		{"negative states", `{"name": "x", "states": -1}`, http.StatusBadRequest},
		{"too many states", `{"name": "x", "states": 65}`, http.StatusBadRequest},
		{"huge states", `{"name": "x", "states": 4294967296, "points": [{"x": 0, "y": 0}, {"x": 10, "y": 0}, {"x": 20, "y": 0}]}`, http.StatusBadRequest},
		{"more states than points", `{"name": "x", "states": 4, "points": [{"x": 0, "y": 0}, {"x": 10, "y": 0}, {"x": 20, "y": 0}]}`, http.StatusBadRequest},
		{"one point", `{"name": "x", "points": [{"x": 0, "y": 0}]}`, http.StatusBadRequest},
		{"duplicate name", `{"name": "circle"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/gestures", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}

			var response errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestGestureHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s)
	createGesture(t, s, "test-gesture-1", "circle", 4, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/gestures/test-gesture-1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response gestureResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Name != "circle" || response.States != 4 {
		t.Errorf("unexpected response: %+v", response)
	}
}

func TestGestureHandler_Get_NotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/gestures/non-existent-id", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestGestureHandler_Update(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s)
	createGesture(t, s, "test-gesture-1", "circle", 2, nil)

	body := `{"name": "loop", "states": 5}`
	req := httptest.NewRequest(http.MethodPut, "/api/gestures/test-gesture-1", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	updated, err := s.Gestures().GetByID("test-gesture-1")
	if err != nil {
		t.Fatalf("failed to get updated gesture: %v", err)
	}
	if updated.Name != "loop" || updated.States != 5 {
		t.Errorf("gesture not updated: %+v", updated)
	}
}

func TestGestureHandler_Update_NotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s)

	req := httptest.NewRequest(http.MethodPut, "/api/gestures/non-existent-id", bytes.NewBufferString(`{"name": "x"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestGestureHandler_UpdateErrors(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s)
	createGesture(t, s, "g1", "circle", 2, []gesture.Point{gesture.Pt(0, 0), gesture.Pt(10, 0), gesture.Pt(20, 0)})

	tests := []struct {
		name string
		body string
	}{
		{"negative states", `{"states": -1}`},
		{"too many states", `{"states": 65}`},
		{"huge states", `{"states": 4294967296}`},
		{"more states than points", `{"states": 4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/gestures/g1", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}

	if g, _ := s.Gestures().GetByID("g1"); g.States != 2 {
		t.Errorf("States = %d, want 2 after rejected updates", g.States)
	}
}

func TestGestureHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s)
	createGesture(t, s, "test-gesture-1", "circle", 1, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/gestures/test-gesture-1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	if _, err := s.Gestures().GetByID("test-gesture-1"); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got: %v", err)
	}

	// Deleting again reports not found
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/gestures/test-gesture-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestGestureHandler_MethodNotAllowed(t *testing.T) {
	s := newTestStore(t)
	handler := NewGestureHandler(s)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/gestures"},
		{http.MethodDelete, "/api/gestures"},
		{http.MethodPatch, "/api/gestures"},
		{http.MethodPost, "/api/gestures/some-id"},
		{http.MethodPatch, "/api/gestures/some-id"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
			}
		})
	}
}

func TestScore_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A score `json:"a"`
		B score `json:"b"`
	}{A: -3.5, B: score(negInf())})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"a":-3.5,"b":null}` {
		t.Errorf("Marshal() = %s", data)
	}
}
