package models

// PageStatus is a progress record for one page. At most one record per page
// has IsFinal set, and it is the last record for that page.
type PageStatus struct {
	PageIndex int    `json:"pageIndex"`
	Message   string `json:"message"`
	IsError   bool   `json:"isError"`
	IsFinal   bool   `json:"isFinal"`
}

// RunState is the lifecycle state of a run.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunAborted   RunState = "aborted"

	// RunFailed means the run never started processing pages.
	RunFailed RunState = "failed"
)

// Terminal reports whether no further pages will be processed.
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunAborted || s == RunFailed
}

// RunResponse is the immediate response for POST /api/v1/runs.
type RunResponse struct {
	ID     string       `json:"id"`
	Status RunState     `json:"status"`
	Total  int          `json:"total"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// RunSnapshot is the response for GET /api/v1/runs/:id.
type RunSnapshot struct {
	ID        string       `json:"id"`
	Status    RunState     `json:"status"`
	Total     int          `json:"total"`
	Completed int          `json:"completed"`
	Failed    int          `json:"failed"`
	Success   *bool        `json:"success,omitempty"`
	Pages     []PageStatus `json:"pages"`
	Error     *ErrorDetail `json:"error,omitempty"`
	CreatedAt int64        `json:"created_at"`
}
