package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/seantiz/capsule/internal/lifecycle"
)

// statusSuccess is the status field of every successful response body.
const statusSuccess = "success"

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a lifecycle rejection to its HTTP status.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrBadRequest):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, lifecycle.ErrForbidden):
		s.writeError(w, http.StatusForbidden, lifecycle.ErrForbidden.Error())
	case errors.Is(err, lifecycle.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "unknown repo")
	default:
		s.logger.Error("unexpected service error", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
