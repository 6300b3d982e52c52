package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/corpus/models"
	"github.com/use-agent/corpus/runner"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
// Status is "busy" while a run is in progress.
func Health(rn *runner.Runner, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := rn.Active()
		status := "healthy"
		if active != "" {
			status = "busy"
		}
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Active:  active,
			Version: Version,
		})
	}
}
