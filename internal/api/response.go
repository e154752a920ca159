package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/banshee-data/mosaic.offsets/internal/db"
	"github.com/banshee-data/mosaic.offsets/internal/offsets"
)

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error string `json:"error"`
	Class string `json:"class,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusForError maps a pipeline or store error onto an HTTP status.
func statusForError(err error) int {
	if errors.Is(err, db.ErrRunNotFound) {
		return http.StatusNotFound
	}
	switch offsets.Classify(err) {
	case offsets.ClassCaller:
		return http.StatusBadRequest
	case offsets.ClassDataQuality, offsets.ClassExtraction:
		return http.StatusUnprocessableEntity
	case offsets.ClassUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError replies with the status and class derived from err.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	if c := offsets.Classify(err); c != offsets.ClassUnknown {
		resp.Class = c.String()
	}
	writeJSON(w, statusForError(err), resp)
}
