package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/render"
	"github.com/ayusman/mudra/internal/store"
)

// DefaultStreamFPS is the playback rate of trajectory streams.
const DefaultStreamFPS = 15

// StreamHandler plays back a gesture prototype as MJPEG, drawing one more
// point per frame.
type StreamHandler struct {
	store *store.Store
}

// NewStreamHandler creates a new StreamHandler with the given store.
func NewStreamHandler(s *store.Store) *StreamHandler {
	return &StreamHandler{store: s}
}

// ServeHTTP handles GET /api/gestures/{id}/stream. The optional fps query
// parameter sets the playback rate.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/gestures"), "/"), "/")
	if len(parts) != 2 || parts[1] != "stream" {
		http.NotFound(w, r)
		return
	}

	fps := DefaultStreamFPS
	if v := r.URL.Query().Get("fps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 120 {
			http.Error(w, "Invalid fps", http.StatusBadRequest)
			return
		}
		fps = n
	}

	points, err := h.store.Gestures().GetPoints(parts[0])
	if err != nil {
		http.Error(w, "Failed to get gesture", http.StatusInternalServerError)
		return
	}
	if len(points) == 0 {
		if _, err := h.store.Gestures().GetByID(parts[0]); errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Gesture has no points", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for i := 1; i <= len(points); i++ {
		buf, err := render.JPEG(points[:i], render.DefaultOptions())
		if err != nil {
			return
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(buf))
		w.Write(buf)
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		if i == len(points) {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
