package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/store"
)

// BankHandler trains, stores and activates model banks.
type BankHandler struct {
	store      *store.Store
	trainer    *gesture.Trainer
	recognizer *app.Recognizer
	metrics    *observe.Metrics
	logger     *slog.Logger
}

// NewBankHandler creates a new BankHandler. Trained banks become active in
// recognizer.
func NewBankHandler(s *store.Store, trainer *gesture.Trainer, recognizer *app.Recognizer, metrics *observe.Metrics, logger *slog.Logger) *BankHandler {
	if metrics == nil {
		metrics = observe.Discard()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BankHandler{
		store:      s,
		trainer:    trainer,
		recognizer: recognizer,
		metrics:    metrics,
		logger:     logger,
	}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *BankHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/banks, /api/banks/{id} or /api/banks/{id}/activate
	parts := splitPath(r.URL.Path, "/api/banks")

	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.train(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, parts[0])
		case http.MethodDelete:
			h.delete(w, r, parts[0])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "activate":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type bankResponse struct {
	ID        string   `json:"id"`
	Total     int      `json:"total"`
	Names     []string `json:"names"`
	Active    bool     `json:"active"`
	CreatedAt string   `json:"created_at"`
}

type reportResponse struct {
	Class         int     `json:"class"`
	Name          string  `json:"name"`
	States        int     `json:"states"`
	Observations  int     `json:"observations"`
	Iterations    int     `json:"iterations"`
	LogLikelihood score   `json:"log_likelihood"`
	Converged     bool    `json:"converged"`
	Seconds       float64 `json:"seconds"`
}

type trainResponse struct {
	Bank    bankResponse     `json:"bank"`
	Reports []reportResponse `json:"reports"`
}

type listBanksResponse struct {
	Banks []bankResponse `json:"banks"`
}

func (h *BankHandler) toResponse(b *store.Bank) bankResponse {
	names := b.Names
	if names == nil {
		names = []string{}
	}
	return bankResponse{
		ID:        b.ID,
		Total:     b.Total,
		Names:     names,
		Active:    h.recognizer.Source() == b.ID,
		CreatedAt: formatTime(b.CreatedAt),
	}
}

// list handles GET /api/banks and returns all banks, newest first.
func (h *BankHandler) list(w http.ResponseWriter, r *http.Request) {
	banks, err := h.store.Banks().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list banks")
		return
	}

	response := listBanksResponse{Banks: make([]bankResponse, 0, len(banks))}
	for _, b := range banks {
		response.Banks = append(response.Banks, h.toResponse(b))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/banks/{id} and returns the bank file document.
func (h *BankHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	b, err := h.store.Banks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Bank not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get bank")
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Write(b.Document)
}

// train handles POST /api/banks. It trains one model per stored gesture,
// stores the bank and makes it active.
func (h *BankHandler) train(w http.ResponseWriter, r *http.Request) {
	protos, err := h.store.Gestures().Prototypes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load gestures")
		return
	}
	if len(protos) == 0 {
		writeError(w, http.StatusBadRequest, "No gestures to train")
		return
	}

	start := time.Now()
	bank, reports, err := h.trainer.TrainBank(r.Context(), protos)
	if err != nil {
		if errors.Is(err, gesture.ErrEmptyPrototype) || errors.Is(err, gesture.ErrInvalidStates) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Error("training failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Training failed")
		return
	}

	names := make([]string, len(protos))
	for i, p := range protos {
		names[i] = p.Name
	}

	b, err := store.NewBank(uuid.New().String(), bank, names)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode bank")
		return
	}
	if err := h.store.Banks().Create(b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store bank")
		return
	}
	h.recognizer.Set(bank, names, b.ID)

	response := trainResponse{Reports: make([]reportResponse, 0, len(reports))}
	for _, rep := range reports {
		h.metrics.RecordTraining(r.Context(), rep.Name, rep.Result.Iterations, rep.Duration)
		response.Reports = append(response.Reports, reportResponse{
			Class:         rep.Class,
			Name:          rep.Name,
			States:        rep.States,
			Observations:  rep.Observations,
			Iterations:    rep.Result.Iterations,
			LogLikelihood: score(rep.Result.LogLikelihood),
			Converged:     rep.Result.Converged,
			Seconds:       rep.Duration.Seconds(),
		})
	}
	response.Bank = h.toResponse(b)

	h.logger.Info("model bank trained",
		"id", b.ID,
		"classes", len(bank),
		"duration", time.Since(start),
	)
	writeJSON(w, http.StatusCreated, response)
}

// activate handles POST /api/banks/{id}/activate.
func (h *BankHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	b, err := h.store.Banks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Bank not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get bank")
		return
	}

	bank, err := b.Models()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.recognizer.Set(bank, b.Names, b.ID)

	writeJSON(w, http.StatusOK, h.toResponse(b))
}

// delete handles DELETE /api/banks/{id}. The active bank stays loaded.
func (h *BankHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Banks().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Bank not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete bank")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
