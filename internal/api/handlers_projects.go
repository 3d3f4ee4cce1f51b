package api

import (
	"errors"
	"net/http"
	"strings"

	"neovar/internal/logging"
	"neovar/internal/models"
	"neovar/internal/project"
)

// handleStartProject is the quota gate: it rejects when a project is already
// running for the email, otherwise debits the usage ledger. The legacy
// {message, status} envelope is what the frontend switches on.
func (s *server) handleStartProject(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required", nil)
		return
	}
	samples := project.CoerceCount(r.URL.Query().Get("numberofsamples"))
	if samples < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "numberofsamples must be non-negative", nil)
		return
	}

	err := s.orch.StartSession(r.Context(), email, samples)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, models.StatusMessage{Message: "OK to start upload", Status: http.StatusOK})
	case errors.Is(err, project.ErrProjectActive):
		writeJSON(w, http.StatusBadRequest, models.StatusMessage{
			Message: "A project is already running for this email. Wait for it to finish before starting another.",
			Status:  http.StatusBadRequest,
		})
	case errors.Is(err, project.ErrInsufficientQuota):
		writeJSON(w, http.StatusBadRequest, models.StatusMessage{
			Message: "Not enough sample counters remaining to start this project.",
			Status:  http.StatusBadRequest,
		})
	case errors.Is(err, project.ErrLedgerNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no usage counter found for this email", map[string]any{"email": email})
	default:
		logging.Errorf("start-project for %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	}
}

// handleProgress returns the active row for (sessionId, email). When the
// pipeline has reported 100%, reading the row also migrates it to the
// completed table; the returned snapshot is pre-migration either way.
func (s *server) handleProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if sessionID == "" || email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "sessionId and email are required", nil)
		return
	}

	snapshot, ok, err := s.orch.PollProgress(r.Context(), sessionID, email)
	if err != nil {
		logging.Errorf("progress for session %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no running project for this session", map[string]any{"sessionId": sessionID})
		return
	}
	if snapshot.Progress == 100 {
		s.metrics.IncProjectsCompleted()
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": []models.ActiveProject{snapshot}})
}

func (s *server) handleReadCounterJSON(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required", nil)
		return
	}

	completed, err := s.orch.CompletedProjects(r.Context(), email)
	if err != nil {
		logging.Errorf("read-counter-json for %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	if len(completed) == 0 {
		writeError(w, http.StatusNotFound, "not_found", "no completed projects for this email", map[string]any{"email": email})
		return
	}
	writeJSON(w, http.StatusOK, completed)
}
