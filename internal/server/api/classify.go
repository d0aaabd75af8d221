package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/store"
)

// ClassifyHandler classifies trajectories against the active bank and
// serves the recognition history.
type ClassifyHandler struct {
	store      *store.Store
	recognizer *app.Recognizer
	metrics    *observe.Metrics
	logger     *slog.Logger
}

// NewClassifyHandler creates a new ClassifyHandler. s may be nil, in which
// case results are not recorded.
func NewClassifyHandler(s *store.Store, recognizer *app.Recognizer, metrics *observe.Metrics, logger *slog.Logger) *ClassifyHandler {
	if metrics == nil {
		metrics = observe.Discard()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifyHandler{
		store:      s,
		recognizer: recognizer,
		metrics:    metrics,
		logger:     logger,
	}
}

// ServeHTTP handles POST /api/classify.
func (h *ClassifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Points) == 0 && len(req.Observations) == 0 {
		writeError(w, http.StatusBadRequest, "Points or observations are required")
		return
	}

	m, source := h.recognizer.Active()
	if m == nil {
		writeError(w, http.StatusServiceUnavailable, "No model bank loaded")
		return
	}

	for _, o := range req.Observations {
		if o < 0 || o >= m.Symbols() {
			writeError(w, http.StatusBadRequest, "Observation out of range")
			return
		}
	}

	start := time.Now()
	var match gesture.Match
	if len(req.Points) > 0 {
		match = m.Match(toPoints(req.Points))
	} else {
		match = m.Classify(req.Observations)
	}
	h.metrics.RecordClassification(r.Context(), match.Name, match.Matched(), time.Since(start))

	if h.store != nil && len(req.Points) > 0 {
		rec := &store.Recognition{
			BankID:     source,
			Class:      match.Class,
			Name:       match.Name,
			Score:      match.Score,
			Trajectory: toPoints(req.Points),
		}
		if err := h.store.Recognitions().Create(rec); err != nil {
			h.logger.Warn("failed to record recognition", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, toMatchResponse(m, match))
}

type classifyRequest struct {
	Points       []pointJSON `json:"points"`
	Observations []int       `json:"observations"`
}

type candidateResponse struct {
	Class         int    `json:"class"`
	Name          string `json:"name"`
	LogLikelihood score  `json:"log_likelihood"`
	Valid         bool   `json:"valid"`
}

type matchResponse struct {
	Matched      bool                `json:"matched"`
	Class        int                 `json:"class"`
	Name         string              `json:"name"`
	Score        score               `json:"score"`
	Observations []int               `json:"observations"`
	Candidates   []candidateResponse `json:"candidates"`
}

func toMatchResponse(m *gesture.Matcher, match gesture.Match) matchResponse {
	obs := match.Observations
	if obs == nil {
		obs = []int{}
	}
	resp := matchResponse{
		Matched:      match.Matched(),
		Class:        match.Class,
		Name:         match.Name,
		Score:        score(match.Score),
		Observations: obs,
		Candidates:   make([]candidateResponse, 0, len(match.Candidates)),
	}
	for _, c := range match.Candidates {
		resp.Candidates = append(resp.Candidates, candidateResponse{
			Class:         c.Index,
			Name:          m.Name(c.Index),
			LogLikelihood: score(c.LogLikelihood),
			Valid:         c.Valid,
		})
	}
	return resp
}

// RecognitionsHandler serves the recognition history.
type RecognitionsHandler struct {
	store *store.Store
}

// NewRecognitionsHandler creates a new RecognitionsHandler with the given store.
func NewRecognitionsHandler(s *store.Store) *RecognitionsHandler {
	return &RecognitionsHandler{store: s}
}

type recognitionResponse struct {
	ID         int64       `json:"id"`
	BankID     string      `json:"bank_id"`
	Class      int         `json:"class"`
	Name       string      `json:"name"`
	Score      score       `json:"score"`
	Trajectory []pointJSON `json:"trajectory"`
	CreatedAt  string      `json:"created_at"`
}

type listRecognitionsResponse struct {
	Recognitions []recognitionResponse `json:"recognitions"`
}

// ServeHTTP handles GET and DELETE on /api/recognitions. GET accepts an
// optional limit query parameter.
func (h *RecognitionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid limit")
				return
			}
			limit = n
		}

		recs, err := h.store.Recognitions().List(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list recognitions")
			return
		}

		response := listRecognitionsResponse{Recognitions: make([]recognitionResponse, 0, len(recs))}
		for _, rec := range recs {
			response.Recognitions = append(response.Recognitions, recognitionResponse{
				ID:         rec.ID,
				BankID:     rec.BankID,
				Class:      rec.Class,
				Name:       rec.Name,
				Score:      score(rec.Score),
				Trajectory: fromPoints(rec.Trajectory),
				CreatedAt:  formatTime(rec.CreatedAt),
			})
		}
		writeJSON(w, http.StatusOK, response)

	case http.MethodDelete:
		if err := h.store.Recognitions().DeleteAll(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to clear recognitions")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
