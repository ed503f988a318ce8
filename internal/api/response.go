package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quantsight/flowcanvas/internal/store"
	"github.com/quantsight/flowcanvas/internal/workflow"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope. Rejections carry their
// structured reason so the UI can present it immediately.
type errorResponse struct {
	Error     string              `json:"error"`
	Rejection *workflow.Rejection `json:"rejection,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeEngineError maps engine errors onto HTTP statuses: rejections block
// the action with 422 and the full structured reason, store misses are 404.
func writeEngineError(w http.ResponseWriter, err error) {
	var rej *workflow.Rejection
	switch {
	case errors.As(err, &rej):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: rej.Message, Rejection: rej})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
