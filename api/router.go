package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/corpus/api/handler"
	"github.com/use-agent/corpus/api/middleware"
	"github.com/use-agent/corpus/config"
	"github.com/use-agent/corpus/runner"
	"github.com/use-agent/corpus/store"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(rn *runner.Runner, st *store.Store, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(rn, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/runs", handler.PostRun(rn))
	protected.GET("/runs/:id", handler.GetRun(st))
	protected.GET("/runs/:id/vectors.json", handler.GetReport(st))

	return r
}
