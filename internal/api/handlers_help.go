package api

import (
	"net/http"
	"strings"

	"neovar/internal/logging"
	"neovar/internal/models"
)

type helpQueryRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// handleSendHelpQuery records the query and forwards it to the admin inbox.
// The record is written first so a mail outage never loses the query.
func (s *server) handleSendHelpQuery(w http.ResponseWriter, r *http.Request) {
	var req helpQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body", map[string]any{"error": err.Error()})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Email == "" || req.Subject == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name, email, subject and message are required", nil)
		return
	}

	q, err := s.store.CreateHelpQuery(r.Context(), req.Name, req.Email, req.Subject, req.Message)
	if err != nil {
		logging.Errorf("help query from %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}

	if s.mailer.Enabled() {
		if err := s.mailer.SendHelpQuery(r.Context(), q); err != nil {
			// The query is persisted; surface the mail failure without
			// dropping it.
			logging.Errorf("help query mail for %s: %v", q.ID, err)
			writeError(w, http.StatusInternalServerError, "mail_error", "query recorded but notification failed", map[string]any{"id": q.ID})
			return
		}
	}

	writeJSON(w, http.StatusOK, models.StatusMessage{Message: "Help query submitted", Status: http.StatusOK})
}
