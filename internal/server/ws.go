package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// FramesConfig configures a [FramesHandler].
type FramesConfig struct {
	Capture    gesture.CaptureConfig
	Recognizer *app.Recognizer
	// Store records recognitions when set.
	Store   *store.Store
	Metrics *observe.Metrics
	Logger  *slog.Logger
}

// FramesHandler accepts detector frames over a WebSocket and replies with
// capture events and classification results. Each connection runs its own
// capture state machine against the shared bank.
type FramesHandler struct {
	config FramesConfig
}

// NewFramesHandler creates a new FramesHandler.
func NewFramesHandler(config FramesConfig) *FramesHandler {
	if config.Metrics == nil {
		config.Metrics = observe.Discard()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &FramesHandler{config: config}
}

// message is sent to the client.
type message struct {
	Type  string `json:"type"`
	State string `json:"state,omitempty"`
	Event string `json:"event,omitempty"`
	Error string `json:"error,omitempty"`

	Trajectory []gesture.Point `json:"trajectory,omitempty"`
	Matched    *bool           `json:"matched,omitempty"`
	Class      *int            `json:"class,omitempty"`
	Name       string          `json:"name,omitempty"`
	Score      *float64        `json:"score,omitempty"`
	Timestamp  int64           `json:"t,omitempty"`
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *FramesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.config.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	h.config.Metrics.ActiveStreams.Add(ctx, 1)
	defer h.config.Metrics.ActiveStreams.Add(context.WithoutCancel(ctx), -1)

	a := app.New(app.Config{
		Capture:    h.config.Capture,
		Recognizer: h.config.Recognizer,
		Metrics:    h.config.Metrics,
		Logger:     h.config.Logger,
	})
	a.AddListener(app.ListenerFunc(func(ctx context.Context, res app.Result) {
		h.record(res)
		conn.WriteJSON(resultMessage(res))
	}))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.config.Logger.Debug("frame stream closed", "error", err)
			}
			return
		}

		var f detector.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			conn.WriteJSON(message{Type: "error", Error: "invalid frame: " + err.Error()})
			continue
		}

		if _, ok := a.ProcessFrame(ctx, f); ok {
			continue
		}
		switch ev := a.LastEvent(); ev {
		case gesture.EventStarted, gesture.EventArmed, gesture.EventAborted:
			conn.WriteJSON(message{Type: "state", State: a.State().String(), Event: ev.String()})
		}
	}
}

func (h *FramesHandler) record(res app.Result) {
	if h.config.Store == nil {
		return
	}
	rec := &store.Recognition{
		BankID:     res.Bank,
		Class:      res.Match.Class,
		Name:       res.Match.Name,
		Score:      res.Match.Score,
		Trajectory: res.Trajectory,
	}
	if err := h.config.Store.Recognitions().Create(rec); err != nil {
		h.config.Logger.Warn("failed to record recognition", "error", err)
	}
}

func resultMessage(res app.Result) message {
	matched := res.Match.Matched()
	class := res.Match.Class
	msg := message{
		Type:       "gesture",
		Trajectory: res.Trajectory,
		Matched:    &matched,
		Class:      &class,
		Name:       res.Match.Name,
		Timestamp:  res.Timestamp,
	}
	if matched {
		s := res.Match.Score
		msg.Score = &s
	}
	return msg
}
