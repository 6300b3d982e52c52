package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeoutMs is the per-page timeout used when a run does not set one.
// It is effectively unbounded.
const DefaultTimeoutMs = 9999 * 1000

// PageDescriptor is one page to visit.
type PageDescriptor struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// RunConfig is the validated input of one corpus-collection run.
type RunConfig struct {
	TraineeID    string
	TimeoutMs    int
	WaitMs       int
	RetryOnError bool
	Pages        []PageDescriptor
}

// Validate rejects configs a run cannot start from.
func (c RunConfig) Validate() error {
	if len(c.Pages) == 0 {
		return NewCollectError(ErrCodeConfiguration, "at least one page is required", nil)
	}
	if c.TraineeID == "" {
		return NewCollectError(ErrCodeConfiguration, "trainee id is required", nil)
	}
	for i, p := range c.Pages {
		if strings.TrimSpace(p.URL) == "" {
			return NewCollectError(ErrCodeConfiguration, fmt.Sprintf("page %d has an empty url", i), nil)
		}
	}
	return nil
}

// Wait is the settle delay before every vectorization attempt.
func (c RunConfig) Wait() time.Duration {
	return time.Duration(c.WaitMs) * time.Millisecond
}

// Timeout is the per-page navigation deadline.
func (c RunConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return DefaultTimeoutMs * time.Millisecond
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// RunRequest is the payload for POST /api/v1/runs.
type RunRequest struct {
	// TraineeID selects the ruleset whose features are extracted. Required.
	TraineeID string `json:"traineeId" binding:"required"`

	// BaseURL is prefixed to every line of Pages.
	BaseURL string `json:"baseUrl,omitempty"`

	// Pages is a newline-separated list of page paths. Blank lines are skipped.
	Pages string `json:"pages,omitempty"`

	// URLs are explicit page descriptors, appended after Pages.
	URLs []PageDescriptor `json:"urls,omitempty"`

	// WaitMs is the settle delay before each vectorization attempt.
	WaitMs int `json:"waitMs,omitempty" binding:"omitempty,min=0"`

	// RetryOnError allows up to 10 attempts per page instead of 1.
	RetryOnError bool `json:"retryOnError"`

	// TimeoutMs bounds navigation of each page. Default: effectively none.
	TimeoutMs int `json:"timeoutMs,omitempty" binding:"omitempty,min=0"`
}

// Resolve turns the request into a RunConfig. It does not validate.
func (r *RunRequest) Resolve() RunConfig {
	var pages []PageDescriptor
	for _, line := range strings.Split(r.Pages, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pages = append(pages, PageDescriptor{URL: r.BaseURL + line})
	}
	pages = append(pages, r.URLs...)

	timeout := r.TimeoutMs
	if timeout == 0 {
		timeout = DefaultTimeoutMs
	}
	return RunConfig{
		TraineeID:    r.TraineeID,
		TimeoutMs:    timeout,
		WaitMs:       r.WaitMs,
		RetryOnError: r.RetryOnError,
		Pages:        pages,
	}
}
