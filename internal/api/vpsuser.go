package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/seantiz/capsule/internal/lifecycle"
	"github.com/seantiz/capsule/internal/model"
)

const maxBodySize = 1 << 20 // 1 MB

// ingestRequest is the JSON body a worker posts to report its status.
// Older workers send the worker id as "id" instead of "repo".
type ingestRequest struct {
	Repo           string `json:"repo"`
	ID             string `json:"id"`
	CallbackSecret string `json:"callback_secret"`
	Status         string `json:"status"`
	RemoteLink     string `json:"remote_link"`
	TokenHint      string `json:"token_hint"`
	RequestedAt    string `json:"requested_at"`
	LogEntry       string `json:"log_entry"`
}

// deleteRequest is the optional JSON body for DELETE /api/vpsuser. The
// fields are pointers so an explicitly empty id can be told apart from an
// absent one.
type deleteRequest struct {
	ID   *string `json:"id"`
	Repo *string `json:"repo"`
}

// target returns the id named by the body, and whether the body named one
// at all.
func (d deleteRequest) target() (string, bool) {
	switch {
	case d.ID != nil && *d.ID != "":
		return *d.ID, true
	case d.Repo != nil && *d.Repo != "":
		return *d.Repo, true
	default:
		return "", d.ID != nil || d.Repo != nil
	}
}

type successResponse struct {
	Status string `json:"status"`
}

type listResponse struct {
	Status string               `json:"status"`
	Users  []model.PublicRecord `json:"users"`
}

type removeResponse struct {
	Status  string `json:"status"`
	Removed int    `json:"removed"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	repo := req.Repo
	if repo == "" {
		repo = req.ID
	}

	err := s.svc.Ingest(r.Context(), lifecycle.Callback{
		Repo:        repo,
		Secret:      req.CallbackSecret,
		Status:      req.Status,
		RemoteLink:  req.RemoteLink,
		TokenHint:   req.TokenHint,
		RequestedAt: req.RequestedAt,
		LogEntry:    req.LogEntry,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{Status: statusSuccess})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, listResponse{
		Status: statusSuccess,
		Users:  s.svc.List(r.Context()),
	})
}

// handleDeleteRecords removes one record when an id is given in the body or
// query, and clears the whole store when no id is named at all. An id that
// is present but empty is rejected rather than treated as a reset.
func (s *Server) handleDeleteRecords(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, named := req.target()
	if id == "" {
		query := r.URL.Query()
		id = query.Get("id")
		named = named || query.Has("id")
	}
	if id == "" && named {
		s.writeError(w, http.StatusBadRequest, "empty id")
		return
	}

	if id == "" {
		n := s.svc.Reset(r.Context())
		s.writeJSON(w, http.StatusOK, removeResponse{Status: statusSuccess, Removed: n})
		return
	}

	if err := s.svc.Remove(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, removeResponse{Status: statusSuccess, Removed: 1})
}
