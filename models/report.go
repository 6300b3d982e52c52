package models

// ReportVersion is the corpus artifact format version.
const ReportVersion = 1

// ReportFilename is the name the artifact is delivered under.
const ReportFilename = "vectors.json"

// ReportHeader names the features. FeatureNames[i] labels index i of every
// features array in the report.
type ReportHeader struct {
	Version      int      `json:"version"`
	FeatureNames []string `json:"featureNames"`
}

// CorpusReport is the training-corpus artifact of one run.
type CorpusReport struct {
	Header ReportHeader    `json:"header"`
	Pages  []FeatureVector `json:"pages"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "busy"
	Uptime  string `json:"uptime"`
	Active  string `json:"active_run,omitempty"`
	Version string `json:"version"`
}
