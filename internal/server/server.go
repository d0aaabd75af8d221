// Package server provides the HTTP server for the Mudra gesture recognition system.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/hmm"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	// Recognizer holds the active bank shared by every endpoint.
	Recognizer *app.Recognizer
	// Trainer builds banks from stored gestures.
	Trainer *gesture.Trainer
	// Capture configures the state machine of each frame stream.
	Capture gesture.CaptureConfig
	Metrics *observe.Metrics
	// MetricsHandler is served at /metrics when set.
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// Server represents the HTTP server for the Mudra application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Recognizer == nil {
		config.Recognizer = app.NewRecognizer(hmm.DefaultScorePolicy())
	}
	if config.Trainer == nil {
		config.Trainer = gesture.NewTrainer(gesture.DefaultTrainOptions(), config.Logger)
	}
	if config.Capture == (gesture.CaptureConfig{}) {
		config.Capture = gesture.DefaultCaptureConfig()
	}
	if config.Metrics == nil {
		config.Metrics = observe.Discard()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = observe.Middleware(config.Metrics, config.Logger)(s.mux)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	classifyHandler := api.NewClassifyHandler(s.config.Store, s.config.Recognizer, s.config.Metrics, s.config.Logger)
	s.mux.Handle("/api/classify", classifyHandler)

	framesHandler := NewFramesHandler(FramesConfig{
		Capture:    s.config.Capture,
		Recognizer: s.config.Recognizer,
		Store:      s.config.Store,
		Metrics:    s.config.Metrics,
		Logger:     s.config.Logger,
	})
	s.mux.Handle("/api/frames", framesHandler)

	// Register store-backed handlers if Store is configured
	if s.config.Store != nil {
		gestureHandler := api.NewGestureHandler(s.config.Store)
		pointsHandler := api.NewPointsHandler(s.config.Store)
		imageHandler := api.NewImageHandler(s.config.Store)
		streamHandler := NewStreamHandler(s.config.Store)

		// Route sub-resources of /api/gestures/{id}
		gestureRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/points"):
				pointsHandler.ServeHTTP(w, r)
			case strings.HasSuffix(r.URL.Path, "/image"):
				imageHandler.ServeHTTP(w, r)
			case strings.HasSuffix(r.URL.Path, "/stream"):
				streamHandler.ServeHTTP(w, r)
			default:
				gestureHandler.ServeHTTP(w, r)
			}
		})
		s.mux.Handle("/api/gestures", gestureRouter)
		s.mux.Handle("/api/gestures/", gestureRouter)

		bankHandler := api.NewBankHandler(s.config.Store, s.config.Trainer, s.config.Recognizer, s.config.Metrics, s.config.Logger)
		s.mux.Handle("/api/banks", bankHandler)
		s.mux.Handle("/api/banks/", bankHandler)

		s.mux.Handle("/api/recognitions", api.NewRecognitionsHandler(s.config.Store))
	}

	if s.config.MetricsHandler != nil {
		s.mux.Handle("/metrics", s.config.MetricsHandler)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
		"bank":   s.config.Recognizer.Source(),
		"ready":  s.config.Recognizer.Ready(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// HTTPServer returns an [http.Server] for addr with sensible timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
