package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/corpus/models"
	"github.com/use-agent/corpus/runner"
	"github.com/use-agent/corpus/store"
)

// PostRun returns a handler for POST /api/v1/runs.
// The page list is validated and the trainee loaded before the response is
// written, so configuration errors never create a run.
func PostRun(rn *runner.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.RunResponse{
				Status: models.RunFailed,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		cfg := req.Resolve()
		run, err := rn.Submit(c.Request.Context(), cfg)
		if err != nil {
			c.JSON(statusFor(err), models.RunResponse{
				Status: models.RunFailed,
				Total:  len(cfg.Pages),
				Error:  models.DetailOf(err),
			})
			return
		}

		c.JSON(http.StatusAccepted, models.RunResponse{
			ID:     run.ID,
			Status: models.RunRunning,
			Total:  len(cfg.Pages),
		})
	}
}

// GetRun returns a handler for GET /api/v1/runs/:id.
func GetRun(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, ok := st.Get(c.Param("id"))
		if !ok {
			notFound(c, "run not found")
			return
		}
		c.JSON(http.StatusOK, run.Snapshot())
	}
}

// GetReport returns a handler for GET /api/v1/runs/:id/vectors.json.
// It serves the artifact as a download once the run has finished.
func GetReport(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, ok := st.Get(c.Param("id"))
		if !ok {
			notFound(c, "run not found")
			return
		}
		data := run.Report()
		if data == nil {
			notFound(c, "report not available yet")
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+models.ReportFilename+`"`)
		c.Data(http.StatusOK, "application/json", data)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, runner.ErrBusy):
		return http.StatusConflict
	case models.HasCode(err, models.ErrCodeConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": models.ErrorDetail{
			Code:    models.ErrCodeNotFound,
			Message: msg,
		},
	})
}
