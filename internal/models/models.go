package models

// ActiveProject is one currently-running pipeline invocation. At most one row
// exists per email; the row is deleted when the run completes.
type ActiveProject struct {
	ProjectID       string   `json:"projectId"`
	ProjectName     string   `json:"projectName"`
	InputDir        string   `json:"inputDir"`
	TestType        string   `json:"testType"`
	Email           string   `json:"email"`
	Progress        int      `json:"progress"`
	NumberOfSamples int      `json:"numberOfSamples"`
	StartTime       string   `json:"startTime"`
	SessionID       string   `json:"sessionId"`
	ScriptPath      string   `json:"scriptPath"`
	VCFPaths        []string `json:"vcfFilePath"`
}

// CompletedProject is the append-only historical record of one pipeline run.
type CompletedProject struct {
	ProjectID       string   `json:"projectId"`
	ProjectName     string   `json:"projectName"`
	Email           string   `json:"email"`
	NumberOfSamples int      `json:"numberOfSamples"`
	StartTime       string   `json:"startTime"`
	CreationTime    string   `json:"creationTime"`
	SessionID       string   `json:"sessionId"`
	VCFPaths        []string `json:"vcfFilePath"`
}

// ProjectUpsert carries the metadata refreshed on every chunk upload and on
// merge. Zero values are treated as "not supplied" and never regress a stored
// non-default value.
type ProjectUpsert struct {
	ProjectName     string
	Email           string
	SessionID       string
	InputDir        string
	TestType        string
	Progress        int
	NumberOfSamples int
	StartTime       string
	ScriptPath      string
	VCFPaths        []string
}

type HelpQuery struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// StatusMessage mirrors the legacy {message, status} envelope the frontend
// consumes on the project endpoints.
type StatusMessage struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}
