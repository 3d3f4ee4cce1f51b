package api

import (
	"net/http"
	"strings"

	"neovar/internal/logging"
)

// handleDownloadVCF streams every recorded output file for a completed
// project as one zip. The archive is built on the fly from the NAS; once
// headers are out, a transfer failure can only truncate the stream.
func (s *server) handleDownloadVCF(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.URL.Query().Get("projectId"))
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if projectID == "" || email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "projectId and email are required", nil)
		return
	}

	completed, ok, err := s.orch.CompletedProject(r.Context(), projectID, email)
	if err != nil {
		logging.Errorf("download-vcf lookup %s: %v", projectID, err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "completed project not found", map[string]any{"projectId": projectID})
		return
	}
	if len(completed.VCFPaths) == 0 {
		writeError(w, http.StatusNotFound, "not_found", "no output files recorded for this project", map[string]any{"projectId": projectID})
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="vcf_files.zip"`)
	counted := &countingWriter{w: w}
	if err := s.orch.StreamArchive(r.Context(), completed.VCFPaths, counted); err != nil {
		s.metrics.IncTransferErrors("download")
		logging.Errorf("download-vcf stream %s: %v", projectID, err)
	}
	s.metrics.AddTransferBytes("download", counted.n)
}
