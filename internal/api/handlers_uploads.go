package api

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"neovar/internal/logging"
	"neovar/internal/models"
	"neovar/internal/project"
)

// handleUpload stores one chunk on the NAS and refreshes the session
// metadata. The chunk arrives either as a multipart "chunk" part or as the
// raw request body; everything else rides on the query string, the way the
// frontend has always sent it.
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectName := strings.TrimSpace(q.Get("projectName"))
	sessionID := strings.TrimSpace(q.Get("sessionId"))
	fileName := strings.TrimSpace(q.Get("fileName"))
	email := strings.TrimSpace(q.Get("email"))
	if projectName == "" || sessionID == "" || fileName == "" || email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "projectName, sessionId, fileName and email are required", nil)
		return
	}
	chunkIndex, err := strconv.Atoi(q.Get("chunkIndex"))
	if err != nil || chunkIndex < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "chunkIndex must be a non-negative integer", nil)
		return
	}

	payload, closePayload, err := chunkPayload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not read chunk payload", map[string]any{"error": err.Error()})
		return
	}
	defer closePayload()

	counted := &countingReader{r: payload}
	if err := s.orch.RecordChunk(r.Context(), sessionID, fileName, chunkIndex, counted); err != nil {
		logging.Errorf("upload chunk %d of %s (session %s): %v", chunkIndex, fileName, sessionID, err)
		s.metrics.IncTransferErrors("upload")
		writeError(w, http.StatusInternalServerError, "transfer_error", err.Error(), nil)
		return
	}
	s.metrics.IncChunksStored()
	s.metrics.AddTransferBytes("upload", counted.n)

	// Progress is advanced by the external pipeline only; uploads never
	// touch it.
	if err := s.orch.UpsertSessionMetadata(r.Context(), project.UpsertInput{
		ProjectName: projectName,
		Email:       email,
		SessionID:   sessionID,
		InputDir:    project.InputDir(s.orch.RemoteRoot(), sessionID),
		SampleCount: q.Get("numberofsamples"),
		ScriptPath:  project.ScriptPathFor(q.Get("processingMode")),
	}); err != nil {
		// The chunk is stored but unlinked; the same upload call can be
		// retried safely because storage overwrites in place.
		logging.Errorf("upload metadata for session %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, models.StatusMessage{Message: "Chunk uploaded", Status: http.StatusOK})
}

// chunkPayload returns the chunk bytes as a stream, from the "chunk"
// multipart part when the request is multipart and from the body otherwise.
func chunkPayload(r *http.Request) (io.Reader, func(), error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, func() {}, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, nil, err
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, nil, err
		}
		if part.FormName() == "chunk" {
			return part, func() { _ = part.Close() }, nil
		}
		_ = part.Close()
	}
}

type mergeRequest struct {
	SessionID       string   `json:"sessionId"`
	FileNames       []string `json:"fileNames"`
	TestName        string   `json:"testName"`
	NumberOfSamples any      `json:"numberOfSamples"`
	Email           string   `json:"email"`
	ProjectName     string   `json:"projectName"`
}

// handleMerge is the client's assertion that every chunk of every file has
// been uploaded. It writes the trigger markers the pipeline watches for and
// returns the predicted output manifest.
func (s *server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body", map[string]any{"error": err.Error()})
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Email = strings.TrimSpace(req.Email)
	req.ProjectName = strings.TrimSpace(req.ProjectName)
	if req.SessionID == "" || req.Email == "" || req.ProjectName == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "sessionId, email and projectName are required", nil)
		return
	}
	if len(req.FileNames) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "fileNames must contain at least one file", nil)
		return
	}

	manifest, err := s.orch.TriggerMerge(r.Context(), project.MergeInput{
		SessionID:   req.SessionID,
		FileNames:   req.FileNames,
		TestName:    req.TestName,
		SampleCount: req.NumberOfSamples,
		Email:       req.Email,
		ProjectName: req.ProjectName,
	})
	if err != nil {
		logging.Errorf("merge for session %s: %v", req.SessionID, err)
		s.metrics.IncTransferErrors("merge")
		writeError(w, http.StatusInternalServerError, "transfer_error", err.Error(), nil)
		return
	}
	s.metrics.IncMergesTriggered()

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Files merged successfully",
		"status":      http.StatusOK,
		"vcfFilePath": manifest,
	})
}
