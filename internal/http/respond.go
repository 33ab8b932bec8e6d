package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// All API responses are JSON. Success bodies carry the payload directly (day
// view, budget) or a minimal acknowledgement; failures use a uniform
// {ok:false, error} envelope.

type ackResponse struct {
	OK bool  `json:"ok"`
	ID int64 `json:"id,omitempty"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeAck acknowledges a mutation. id <= 0 omits the id field.
func writeAck(w http.ResponseWriter, id int64) {
	writeJSON(w, http.StatusOK, ackResponse{OK: true, ID: id})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}
