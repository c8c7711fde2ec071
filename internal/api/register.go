package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/seantiz/capsule/internal/lifecycle"
)

// registerRequest is the JSON body for POST /api/vps.
type registerRequest struct {
	Owner       string `json:"owner"`
	GitHubToken string `json:"github_token"`
}

// registerResponse carries what the provisioning trigger embeds into the
// worker's environment.
type registerResponse struct {
	Status         string    `json:"status"`
	Repository     string    `json:"repository"`
	CallbackURL    string    `json:"callback_url"`
	CallbackSecret string    `json:"callback_secret"`
	TokenHint      string    `json:"token_hint"`
	RequestedAt    time.Time `json:"requested_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reg, err := s.svc.Register(r.Context(), lifecycle.Registration{
		Owner: req.Owner,
		Token: req.GitHubToken,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, registerResponse{
		Status:         statusSuccess,
		Repository:     reg.Repo,
		CallbackURL:    callbackURL(r),
		CallbackSecret: reg.CallbackSecret,
		TokenHint:      reg.TokenHint,
		RequestedAt:    reg.RequestedAt,
	})
}

// callbackURL builds the externally reachable ingest URL, honoring proxy
// headers. Local hosts default to http, everything else to https.
func callbackURL(r *http.Request) string {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	if host == "" {
		host = "localhost:3000"
	}

	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "https"
		if strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1") {
			proto = "http"
		}
	}
	return proto + "://" + strings.TrimSuffix(host, "/") + routeRecords
}
