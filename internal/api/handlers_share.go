package api

import (
	"net/http"
	"path"
	"strings"

	"neovar/internal/logging"
)

type synoShareRequest struct {
	ProjectID string `json:"projectId"`
	Email     string `json:"email"`
}

// handleCreateSynoShare mints a FileStation share link for a completed
// project's output directory on the NAS.
func (s *server) handleCreateSynoShare(w http.ResponseWriter, r *http.Request) {
	var req synoShareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body", map[string]any{"error": err.Error()})
		return
	}
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.Email = strings.TrimSpace(req.Email)
	if req.ProjectID == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "projectId and email are required", nil)
		return
	}

	if !s.nas.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "share_unavailable", "NAS share API is not configured", nil)
		return
	}

	completed, ok, err := s.orch.CompletedProject(r.Context(), req.ProjectID, req.Email)
	if err != nil {
		logging.Errorf("syno share lookup %s: %v", req.ProjectID, err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "completed project not found", map[string]any{"projectId": req.ProjectID})
		return
	}

	sharePath := path.Join(s.orch.RemoteRoot(), completed.SessionID, completed.SessionID)
	link, err := s.nas.CreateShare(r.Context(), sharePath, s.cfg.ShareExpireDays)
	if err != nil {
		logging.Errorf("syno share create %s: %v", req.ProjectID, err)
		writeError(w, http.StatusInternalServerError, "share_error", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Share link created",
		"status":  http.StatusOK,
		"url":     link,
	})
}
