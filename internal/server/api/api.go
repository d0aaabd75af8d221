// Package api provides HTTP API handlers for the Mudra gesture recognition system.
package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// score is a log-likelihood that encodes non-finite values as null.
type score float64

// MarshalJSON implements json.Marshaler.
func (s score) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

type pointJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func fromPoints(points []gesture.Point) []pointJSON {
	out := make([]pointJSON, len(points))
	for i, p := range points {
		out[i] = pointJSON{X: p.X, Y: p.Y}
	}
	return out
}

func toPoints(points []pointJSON) []gesture.Point {
	out := make([]gesture.Point, len(points))
	for i, p := range points {
		out[i] = gesture.Pt(p.X, p.Y)
	}
	return out
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// splitPath returns the path segments after prefix.
func splitPath(path, prefix string) []string {
	path = strings.TrimPrefix(path, prefix)
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
