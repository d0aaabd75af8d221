package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/mudra/internal/render"
	"github.com/ayusman/mudra/internal/store"
)

// ImageHandler renders the prototype trajectory of a gesture as PNG.
type ImageHandler struct {
	store *store.Store
}

// NewImageHandler creates a new ImageHandler with the given store.
func NewImageHandler(s *store.Store) *ImageHandler {
	return &ImageHandler{store: s}
}

// ServeHTTP handles GET /api/gestures/{id}/image. The optional width,
// height and connect query parameters control the canvas.
func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/gestures")
	if len(parts) != 2 || parts[1] != "image" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	proto, err := prototype(h.store, parts[0])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	opts, err := renderOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := render.PNG(proto.Points, opts)
	if err != nil {
		if errors.Is(err, render.ErrEmpty) {
			writeError(w, http.StatusNotFound, "Gesture has no points")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to render gesture")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func renderOptions(r *http.Request) (render.Options, error) {
	opts := render.DefaultOptions()
	q := r.URL.Query()

	for key, dst := range map[string]*int{"width": &opts.Width, "height": &opts.Height} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 4096 {
			return opts, errors.New("Invalid " + key)
		}
		*dst = n
	}
	opts.Connect = q.Get("connect") == "true"
	return opts, nil
}
