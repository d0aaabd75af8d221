package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// PointsHandler handles the prototype trajectory of a gesture.
type PointsHandler struct {
	store *store.Store
}

// NewPointsHandler creates a new PointsHandler with the given store.
func NewPointsHandler(s *store.Store) *PointsHandler {
	return &PointsHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/gestures/{id}/points
func (h *PointsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/gestures")
	if len(parts) != 2 || parts[1] != "points" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	gestureID := parts[0]

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, gestureID)
	case http.MethodPut:
		h.put(w, r, gestureID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type pointsRequest struct {
	Points []pointJSON `json:"points"`
}

type pointsResponse struct {
	GestureID string      `json:"gesture_id"`
	States    int         `json:"states"`
	Points    []pointJSON `json:"points"`
}

// get handles GET /api/gestures/{id}/points. With ?format=yaml the
// trajectory is returned as a prototype document.
func (h *PointsHandler) get(w http.ResponseWriter, r *http.Request, gestureID string) {
	proto, err := prototype(h.store, gestureID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get points")
		return
	}

	if r.URL.Query().Get("format") == "yaml" {
		w.Header().Set("Content-Type", "application/yaml")
		gesture.WritePrototype(w, proto)
		return
	}

	writeJSON(w, http.StatusOK, pointsResponse{
		GestureID: gestureID,
		States:    proto.States,
		Points:    fromPoints(proto.Points),
	})
}

// put handles PUT /api/gestures/{id}/points. A YAML body is read as a
// prototype document and its N replaces the state count. Nothing is stored
// unless the whole prototype is trainable.
func (h *PointsHandler) put(w http.ResponseWriter, r *http.Request, gestureID string) {
	g, err := h.store.Gestures().GetByID(gestureID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	proto := &gesture.Prototype{Name: g.Name, States: g.States}
	if isYAML(r.Header.Get("Content-Type")) {
		doc, err := gesture.ReadPrototype(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid prototype: "+err.Error())
			return
		}
		proto.States = doc.States
		proto.Points = doc.Points
	} else {
		var req pointsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		proto.Points = toPoints(req.Points)
	}

	if err := proto.Validate(); err != nil {
		if errors.Is(err, gesture.ErrEmptyPrototype) {
			writeError(w, http.StatusBadRequest, "At least two points are required")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Gestures().SetPrototype(gestureID, proto.States, proto.Points); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store points")
		return
	}

	writeJSON(w, http.StatusOK, pointsResponse{
		GestureID: gestureID,
		States:    proto.States,
		Points:    fromPoints(proto.Points),
	})
}

func isYAML(contentType string) bool {
	return strings.Contains(contentType, "yaml")
}
