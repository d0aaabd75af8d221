package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// GestureHandler handles HTTP requests for gesture resources.
type GestureHandler struct {
	store *store.Store
}

// NewGestureHandler creates a new GestureHandler with the given store.
func NewGestureHandler(s *store.Store) *GestureHandler {
	return &GestureHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/gestures or /api/gestures/{id}
	parts := splitPath(r.URL.Path, "/api/gestures")

	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type createGestureRequest struct {
	Name   string      `json:"name"`
	States int         `json:"states"`
	Points []pointJSON `json:"points"`
}

type updateGestureRequest struct {
	Name   string `json:"name"`
	States int    `json:"states"`
}

type gestureResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	States    int    `json:"states"`
	Points    int    `json:"points"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type listGesturesResponse struct {
	Gestures []gestureResponse `json:"gestures"`
}

// toResponse converts a store.Gesture to a gestureResponse.
func toResponse(g *store.Gesture, points int) gestureResponse {
	return gestureResponse{
		ID:        g.ID,
		Name:      g.Name,
		States:    g.States,
		Points:    points,
		CreatedAt: formatTime(g.CreatedAt),
		UpdatedAt: formatTime(g.UpdatedAt),
	}
}

// list handles GET /api/gestures and returns all gestures in class order.
func (h *GestureHandler) list(w http.ResponseWriter, r *http.Request) {
	gestures, err := h.store.Gestures().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list gestures")
		return
	}

	response := listGesturesResponse{
		Gestures: make([]gestureResponse, 0, len(gestures)),
	}

	for _, g := range gestures {
		points, err := h.store.Gestures().GetPoints(g.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list gestures")
			return
		}
		response.Gestures = append(response.Gestures, toResponse(g, len(points)))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/gestures/{id} and returns a single gesture.
func (h *GestureHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	points, err := h.store.Gestures().GetPoints(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(g, len(points)))
}

// create handles POST /api/gestures and creates a new gesture.
func (h *GestureHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createGestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.States != 0 {
		if err := gesture.CheckStates(req.States); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if len(req.Points) > 0 {
		proto := &gesture.Prototype{Name: req.Name, States: req.States, Points: toPoints(req.Points)}
		if proto.States == 0 {
			proto.States = gesture.DefaultStates
		}
		if err := proto.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if _, err := h.store.Gestures().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Gesture name already exists")
		return
	}

	g := &store.Gesture{
		ID:     uuid.New().String(),
		Name:   req.Name,
		States: req.States,
	}
	if err := h.store.Gestures().Create(g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create gesture")
		return
	}

	if len(req.Points) > 0 {
		if err := h.store.Gestures().SetPoints(g.ID, toPoints(req.Points)); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to store gesture points")
			return
		}
	}

	writeJSON(w, http.StatusCreated, toResponse(g, len(req.Points)))
}

// update handles PUT /api/gestures/{id} and updates an existing gesture.
func (h *GestureHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	var req updateGestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Update fields if provided
	if req.Name != "" {
		g.Name = req.Name
	}
	if req.States != 0 {
		if err := gesture.CheckStates(req.States); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		points, err := h.store.Gestures().GetPoints(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get gesture points")
			return
		}
		if len(points) > 0 && req.States > len(points) {
			writeError(w, http.StatusBadRequest, "States must not exceed the number of points")
			return
		}
		g.States = req.States
	}

	if err := h.store.Gestures().Update(g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update gesture")
		return
	}

	points, err := h.store.Gestures().GetPoints(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(g, len(points)))
}

// delete handles DELETE /api/gestures/{id} and removes a gesture.
func (h *GestureHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Gestures().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete gesture")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// prototype loads a gesture with its trajectory.
func prototype(s *store.Store, id string) (*gesture.Prototype, error) {
	g, err := s.Gestures().GetByID(id)
	if err != nil {
		return nil, err
	}
	points, err := s.Gestures().GetPoints(id)
	if err != nil {
		return nil, err
	}
	return &gesture.Prototype{Name: g.Name, States: g.States, Points: points}, nil
}
